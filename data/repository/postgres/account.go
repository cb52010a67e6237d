package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/kr_portfolio_manager/data/repository"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model/dbModel"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
)

func (r *Postgres) GetAccount(ctx context.Context) (account dbModel.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAccount"
	query := `SELECT account_id, cash, stock_ratio, dt_update FROM portfolio_account WHERE account_id = 1`

	slog.Debug("GetAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query).StructScan(&account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dbModel.Account{}, repository.ErrNotFound
		}
		return dbModel.Account{}, err
	}

	return account, nil
}

func (r *Postgres) SaveAccount(ctx context.Context, account dbModel.Account) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SaveAccount"
	params := map[string]any{
		"cash":       account.Cash,
		"stockRatio": account.StockRatio.String(),
	}
	query := `
		INSERT INTO portfolio_account (account_id, cash, stock_ratio, dt_update)
		VALUES (1, $1, $2, now())
		ON CONFLICT (account_id) DO UPDATE SET
			cash = EXCLUDED.cash,
			stock_ratio = EXCLUDED.stock_ratio,
			dt_update = EXCLUDED.dt_update
		`

	slog.Debug("SaveAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("SaveAccount failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SaveAccount completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, account.Cash, account.StockRatio)
	return err
}

package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/KotFed0t/kr_portfolio_manager/internal/converter/dbConverter"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/KotFed0t/kr_portfolio_manager/internal/model/dbModel"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
)

func (r *Postgres) InsertTradeOperation(ctx context.Context, operation model.TradeOperation) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTradeOperation"
	query := `
		INSERT INTO trade_operations(trade_type, name, ticker, quantity, unit_price, total_price, cash_after, dt_create)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`

	slog.Debug(
		"InsertTradeOperation start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Any("operation", operation),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertTradeOperation failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTradeOperation completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		string(operation.Type),
		operation.Name,
		operation.Ticker,
		operation.Quantity,
		operation.UnitPrice,
		operation.TotalPrice,
		operation.CashAfter,
		sql.NullTime{Time: operation.DtCreate, Valid: !operation.DtCreate.IsZero()},
	)

	return err
}

// GetTradeOperations returns the latest operations, newest first.
func (r *Postgres) GetTradeOperations(ctx context.Context, limit int) (operations []model.TradeOperation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTradeOperations"
	query := `
		SELECT operation_id, trade_type, name, ticker, quantity, unit_price, total_price, cash_after, dt_create
		FROM trade_operations
		ORDER BY dt_create DESC, operation_id DESC
		LIMIT $1
		`

	slog.Debug("GetTradeOperations start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int("limit", limit))
	defer func() {
		if err != nil {
			slog.Error("GetTradeOperations failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTradeOperations completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	operations = make([]model.TradeOperation, 0, limit)
	for rows.Next() {
		var dbOperation dbModel.TradeOperation
		err = rows.StructScan(&dbOperation)
		if err != nil {
			return nil, err
		}
		operations = append(operations, dbConverter.ConvertTradeOperation(dbOperation))
	}

	return operations, rows.Err()
}

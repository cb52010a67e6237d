package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"github.com/redis/go-redis/v9"
)

const pricePrefix = "price:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetPrice(ctx context.Context, ticker string, price int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := r.redis.Set(ctx, pricePrefix+ticker, price, r.cfg.Cache.PriceExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("ticker", ticker))
		return err
	}

	return nil
}

func (r *RedisCache) SetPrices(ctx context.Context, prices map[string]int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetPrices", slog.String("rqID", rqID), slog.Int("count", len(prices)))

	pipe := r.redis.Pipeline()
	for ticker, price := range prices {
		pipe.Set(ctx, pricePrefix+ticker, price, r.cfg.Cache.PriceExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPrices completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetPrice(ctx context.Context, ticker string) (int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, pricePrefix+ticker).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("ticker", ticker))
		return 0, err
	}

	price, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		slog.Error("can't parse cached price", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("resultFromRedis", res))
		return 0, err
	}

	return price, nil
}

func (r *RedisCache) FlushPrices(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushPrices start", slog.String("rqID", rqID))

	iter := r.redis.Scan(ctx, 0, pricePrefix+"*", 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Error("failed on redis.Scan", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("FlushPrices completed", slog.String("rqID", rqID), slog.Int("deleted", len(keys)))

	return nil
}

package data

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/redis/go-redis/v9"
)

func redisAddr(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port))
}

// NewRedisClient backs both the price cache and the chat sessions.
func NewRedisClient(cfg *config.Config) *redis.Client {
	addr := redisAddr(cfg)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Error while connecting Redis", slog.String("addr", addr), slog.String("error", err.Error()))
		panic(err)
	}
	slog.Info("Redis connected", slog.String("addr", addr), slog.Int("db", cfg.Redis.DB))

	return rdb
}

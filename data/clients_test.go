package data

import (
	"testing"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/stretchr/testify/assert"
)

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Postgres.Host = "db"
	cfg.Postgres.Port = 5432
	cfg.Postgres.User = "portfolio"
	cfg.Postgres.DbName = "kr"
	cfg.Postgres.Password = "secret"

	assert.Equal(t, "host=db port=5432 user=portfolio dbname=kr sslmode=disable password=secret", postgresDSN(cfg))
}

func TestRedisAddr(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Host = "redis"
	cfg.Redis.Port = 6379
	assert.Equal(t, "redis:6379", redisAddr(cfg))

	cfg.Redis.Host = "::1"
	assert.Equal(t, "[::1]:6379", redisAddr(cfg))
}

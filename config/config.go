package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres          Postgres
	Telegram          Telegram
	Redis             Redis
	HTTP              HTTP
	API               API
	Cache             Cache
	Jobs              Jobs
	GoogleDrive       GoogleDrive
	Portfolio         Portfolio
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"30m"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"5"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Telegram struct {
	Token      string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

type API struct {
	Debug   bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	KrxApi  KrxApi
}

type KrxApi struct {
	Url          string  `env:"KRX_API_URL" envDefault:"http://data.krx.co.kr"`
	RateLimit    float64 `env:"KRX_API_RATE_LIMIT" envDefault:"2"`
	LookbackDays int     `env:"KRX_LOOKBACK_DAYS" envDefault:"10"`
}

type Cache struct {
	Backend         string        `env:"CACHE_BACKEND" envDefault:"redis"`
	PriceExpiration time.Duration `env:"CACHE_PRICE_EXPIRATION" envDefault:"15m"`
}

type Jobs struct {
	FillPriceCacheInterval  time.Duration `env:"FILL_PRICE_CACHE_JOB_INTERVAL" envDefault:"15m"`
	DeleteOldReportsCrontab string        `env:"DELETE_OLD_REPORTS_JOB_CRONTAB" envDefault:"0 0 4 * * *"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE"`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"72h"`
}

type Portfolio struct {
	HoldingsFile  string  `env:"PORTFOLIO_HOLDINGS_FILE" envDefault:"kr.csv"`
	SeedCash      int64   `env:"PORTFOLIO_SEED_CASH" envDefault:"581365595"`
	SeedRatio     float64 `env:"PORTFOLIO_SEED_STOCK_RATIO" envDefault:"0.9"`
	FallbackPrice int64   `env:"PORTFOLIO_FALLBACK_PRICE" envDefault:"1000"`
	LookupWorkers int     `env:"PORTFOLIO_LOOKUP_WORKERS" envDefault:"4"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/KotFed0t/kr_portfolio_manager/data"
	"github.com/KotFed0t/kr_portfolio_manager/data/cache"
	"github.com/KotFed0t/kr_portfolio_manager/data/repository/postgres"
	"github.com/KotFed0t/kr_portfolio_manager/data/session"
	"github.com/KotFed0t/kr_portfolio_manager/data/storage/csvStorage"
	"github.com/KotFed0t/kr_portfolio_manager/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/kr_portfolio_manager/internal/externalApi/krxApi"
	"github.com/KotFed0t/kr_portfolio_manager/internal/priceLookup"
	"github.com/KotFed0t/kr_portfolio_manager/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/kr_portfolio_manager/internal/scheduler"
	"github.com/KotFed0t/kr_portfolio_manager/internal/service/portfolioService"
	"github.com/KotFed0t/kr_portfolio_manager/internal/tgbot"
	"github.com/KotFed0t/kr_portfolio_manager/internal/transport/rest"
	"github.com/KotFed0t/kr_portfolio_manager/internal/transport/telegram"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	var priceCache priceLookup.PriceCache
	switch cfg.Cache.Backend {
	case "memory":
		priceCache = cache.NewMemoryCache(cfg.Cache.PriceExpiration)
	default:
		priceCache = cache.NewRedisCache(redisClient, cfg)
	}
	slog.Info("price cache backend", slog.String("backend", cfg.Cache.Backend))

	redisSession := session.NewRedisSession(redisClient, cfg)

	krxApiClient := krxApi.New(cfg)

	prices := priceLookup.New(krxApiClient, priceCache, cfg.Portfolio.FallbackPrice)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	holdingsStore := csvStorage.New(cfg.Portfolio.HoldingsFile)

	portfolioSrv := portfolioService.New(cfg, holdingsStore, pgRepo, prices, reportGenerator, googleCloudStorage)
	if err := portfolioSrv.Load(utils.WithRequestID(ctx, "")); err != nil {
		slog.Error("failed to load portfolio", slog.String("err", err.Error()))
		panic(err)
	}

	sched := scheduler.New()
	sched.RegisterPortfolioJobs(portfolioSrv, cfg)
	sched.Start()
	defer sched.Stop()

	httpServer := rest.NewServer(cfg, rest.NewHandler(portfolioSrv))
	httpServer.Start()
	defer httpServer.Stop()

	tgController := telegram.NewController(portfolioSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"openclaw-bot/config"
	"openclaw-bot/internal/ai"
	"openclaw-bot/internal/analysis"
	"openclaw-bot/internal/api"
	"openclaw-bot/internal/binance"
	"openclaw-bot/internal/bot"
	"openclaw-bot/internal/cache"
	"openclaw-bot/internal/database"
	"openclaw-bot/internal/events"
	"openclaw-bot/internal/execution"
	"openclaw-bot/internal/logging"
	"openclaw-bot/internal/market"
	"openclaw-bot/internal/metrics"
	"openclaw-bot/internal/notification"
	"openclaw-bot/internal/risk"
	"openclaw-bot/internal/scheduler"
	"openclaw-bot/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:  cfg.LoggingConfig.Level,
		Format: cfg.LoggingConfig.Format,
		Output: cfg.LoggingConfig.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	logger.Info().Str("symbol", cfg.TradingConfig.Symbol).Str("timeframe", cfg.TradingConfig.Timeframe).Msg("starting OpenClaw bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	}, logging.Component(logger, "database"))
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	repo := database.NewRepository(db)

	// Exchange client
	exchange := binance.NewClient(cfg.BinanceConfig.APIKey, cfg.BinanceConfig.SecretKey, cfg.BinanceConfig.BaseURL)

	// Decision authority
	aiClient := ai.NewClient(&ai.ClientConfig{
		Provider: ai.Provider(cfg.AIConfig.Provider),
		BaseURL:  cfg.AIConfig.BaseURL,
		APIKey:   cfg.AIConfig.APIKey,
		Model:    cfg.AIConfig.Model,
		Timeout:  cfg.AITimeout(),
	})
	engine, err := ai.NewEngine(aiClient, cfg.AIConfig.GuidePath, logging.Component(logger, "ai"))
	if err != nil {
		logger.Fatal().Err(err).Msg("decision engine init failed")
	}

	// Risk controller
	guard := risk.NewGuard(repo, repo, risk.Config{
		MaxDailyDrawdownR: cfg.RiskConfig.MaxDailyDrawdownR,
		MaxTradeDuration:  time.Duration(cfg.RiskConfig.MaxTradeDurationMins) * time.Minute,
		AllowRecovery:     cfg.RiskConfig.AllowKillswitchRecover,
	}, logging.Component(logger, "risk"))

	// Execution gate
	gate, err := execution.NewGate(exchange, repo, execution.Config{
		Symbol:              cfg.TradingConfig.Symbol,
		RiskPerTradePercent: cfg.RiskConfig.RiskPerTradePercent,
		MinRRRatio:          cfg.RiskConfig.MinRRRatio,
		AccountBalance:      cfg.TradingConfig.AccountBalance,
		ExecuteOrders:       cfg.BinanceConfig.ExecuteOrders,
	}, logging.Component(logger, "execution"))
	if err != nil {
		logger.Fatal().Err(err).Msg("execution gate init failed")
	}

	// Event bus and consumers
	bus := events.NewBus()
	bus.Subscribe(metrics.ObserveEvent)

	mirror := cache.NewMirror(cfg.RedisConfig, logging.Component(logger, "cache"))
	defer mirror.Close()
	if mirror.Enabled() {
		bus.Subscribe(func(e events.PipelineEvent) {
			storeCtx, storeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer storeCancel()
			mirror.StoreEvent(storeCtx, e)
			state, err := repo.GetOrCreateDailyState(storeCtx, time.Now().UTC().Format("2006-01-02"))
			if err != nil {
				logger.Error().Err(err).Msg("risk state read for mirror failed")
				return
			}
			mirror.StoreRiskState(storeCtx, state)
		})
	}

	notifyManager := notification.NewManager(cfg.NotificationConfig.Enabled, logging.Component(logger, "notification"))
	if cfg.NotificationConfig.Telegram.Enabled {
		notifyManager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
			BotToken: cfg.NotificationConfig.Telegram.BotToken,
			ChatID:   cfg.NotificationConfig.Telegram.ChatID,
			Enabled:  cfg.NotificationConfig.Telegram.Enabled,
		}))
		logger.Info().Msg("telegram notifications enabled")
	}
	includeWait := cfg.NotificationConfig.Telegram.IncludeWait
	bus.Subscribe(func(e events.PipelineEvent) {
		if !includeWait && e.Status == events.StatusWait {
			return
		}
		notifyManager.Send(notification.FormatPipelineEvent(e))
	})

	// Pipeline
	pipeline := bot.NewPipeline(
		analysis.NewDetector(cfg.TradingConfig.Symbol, cfg.TradingConfig.Timeframe),
		engine,
		gate,
		guard,
		analysis.NewSessionManager(),
		bus,
		bot.Config{
			Symbol:       cfg.TradingConfig.Symbol,
			KillzoneOnly: cfg.TradingConfig.KillzoneOnly,
		},
		logging.Component(logger, "pipeline"),
	)

	// API server
	server := api.NewServer(api.Config{
		Port:              cfg.ServerConfig.Port,
		InternalToken:     cfg.ServerConfig.InternalToken,
		AllowOrigins:      cfg.ServerConfig.AllowOrigins,
		MaxDailyDrawdownR: cfg.RiskConfig.MaxDailyDrawdownR,
	}, repo, map[string]api.ReadinessChecker{
		"database": api.ReadinessFunc(db.Ping),
		"ai":       api.ReadinessFunc(aiClient.Ping),
		"exchange": api.ReadinessFunc(func(ctx context.Context) error {
			_, err := exchange.GetPrice(ctx, cfg.TradingConfig.Symbol)
			return err
		}),
	}, bus, logging.Component(logger, "api"))

	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	// Scheduler
	sched := scheduler.New(ctx, guard, pipeline, notifyManager, logging.Component(logger, "scheduler"))
	if err := sched.RegisterAll(cfg.SchedulerConfig.DailyBriefingCron, cfg.SchedulerConfig.TimeStopCron); err != nil {
		logger.Fatal().Err(err).Msg("scheduler registration failed")
	}
	sched.Start()
	defer sched.Stop()

	// Candle stream
	candles := stream.New(exchange, stream.Config{
		Symbol:       cfg.TradingConfig.Symbol,
		Interval:     cfg.TradingConfig.Timeframe,
		MaxCandles:   cfg.TradingConfig.MaxCandles,
		PollInterval: time.Duration(cfg.TradingConfig.PollIntervalSecs) * time.Second,
		RetryBackoff: time.Duration(cfg.TradingConfig.RetryBackoffSecs) * time.Second,
	}, logging.Component(logger, "stream"))

	onLocked := func(ctx context.Context, w market.Window) {
		metrics.CandleLocked()
		pipeline.OnLockedWindow(ctx, w)
	}
	go func() {
		if err := candles.Run(ctx, onLocked); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("candle stream stopped")
			cancel()
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}
	cancel()

	// Let any cycle that already committed to order placement finish before
	// tearing the process down.
	candles.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("API server shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-scanner/config"
	"signal-scanner/internal/api"
	"signal-scanner/internal/lifecycle"
	"signal-scanner/internal/logging"
	"signal-scanner/internal/market"
	"signal-scanner/internal/notification"
	"signal-scanner/internal/scanner"
	"signal-scanner/internal/smc"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/strategy"
	"signal-scanner/internal/validator"
	"signal-scanner/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	log := logger.With().Str("component", "main").Logger()

	ctx := context.Background()

	vaultClient, err := vault.New(vault.Config{
		Address:   cfg.Vault.Address,
		Token:     cfg.Vault.Token,
		MountPath: cfg.Vault.MountPath,
	}, logger)
	if err != nil {
		log.Warn().Err(err).Msg("vault unavailable, using environment credentials")
	}

	// Candle provider.
	var provider market.CandleProvider
	var httpProvider *market.HTTPProvider
	if cfg.Provider.MockMode {
		provider = market.NewMockProvider()
		log.Info().Msg("using simulated market data")
	} else {
		httpProvider = market.NewHTTPProvider(market.HTTPProviderConfig{
			BaseURL:      cfg.Provider.BaseURL,
			StreamURL:    cfg.Provider.StreamURL,
			APIKey:       vaultClient.SecretOr(ctx, "data-api", "api_key", cfg.Provider.APIKey),
			StreamEnable: cfg.Provider.StreamEnable,
		}, logger)
		provider = httpProvider
	}

	// Persistence.
	var store storage.Store
	if cfg.Database.Enabled {
		pg, err := storage.NewPostgresStore(ctx, storage.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: vaultClient.SecretOr(ctx, "database", "password", cfg.Database.Password),
			Database: cfg.Database.Database,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer pg.Close()
		store = pg
	} else {
		store = storage.NewMemoryStore()
		log.Info().Msg("no database configured, using in-memory store")
	}

	priceCache := storage.NewPriceCache(ctx, storage.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      time.Duration(cfg.Redis.TTLMinutes) * time.Minute,
	}, logger)
	defer priceCache.Close()

	// Notifications.
	var notifier lifecycle.Notifier
	if cfg.Notification.Enabled {
		manager := notification.NewManager(logger)
		if cfg.Notification.Telegram.Enabled {
			token := vaultClient.SecretOr(ctx, "telegram", "bot_token", cfg.Notification.Telegram.BotToken)
			manager.AddNotifier(notification.NewTelegramNotifier(token, cfg.Notification.Telegram.ChatID))
		}
		if cfg.Notification.Discord.Enabled {
			manager.AddNotifier(notification.NewDiscordNotifier(cfg.Notification.Discord.WebhookURL))
		}
		notifier = manager
	}

	lifecycleManager := lifecycle.NewManager(lifecycle.Config{
		Cooldown:        time.Duration(cfg.Lifecycle.CooldownMinutes) * time.Minute,
		MonitorInterval: time.Duration(cfg.Lifecycle.MonitorIntervalSeconds) * time.Second,
	}, store, provider, priceCache, notifier, logger)

	registry := strategy.NewRegistry(logger)
	registry.Register(strategy.NewSMCStrategy(strategy.SMCConfig{
		PoolLookback: cfg.Scanner.PoolLookback,
		Entry:        smc.EntryConfig{Expiry: time.Duration(cfg.Lifecycle.ExpiryHours) * time.Hour},
	}, provider, logger))

	var aiValidator validator.Validator
	if cfg.Validator.Enabled {
		aiValidator = validator.NewHTTPValidator(validator.HTTPConfig{
			BaseURL: cfg.Validator.BaseURL,
			APIKey:  vaultClient.SecretOr(ctx, "validator", "api_key", cfg.Validator.APIKey),
			Timeout: time.Duration(cfg.Validator.TimeoutSeconds) * time.Second,
		}, logger)
	}

	universe := market.DefaultUniverse()
	scan := scanner.New(scanner.Config{
		Interval:    time.Duration(cfg.Scanner.IntervalSeconds) * time.Second,
		Workers:     cfg.Scanner.WorkerCount,
		ScanTimeout: time.Duration(cfg.Scanner.TimeoutSeconds) * time.Second,
	}, universe, registry, lifecycleManager, store, aiValidator, logger)

	server := api.NewServer(api.Config{
		Port:         cfg.Server.Port,
		AllowOrigins: cfg.Server.AllowOrigins,
	}, scan, registry, store, logger)

	if httpProvider != nil {
		symbols := make([]string, 0, len(universe))
		for _, inst := range universe {
			symbols = append(symbols, inst.Symbol)
		}
		httpProvider.StartStream(symbols)
	}
	lifecycleManager.Start()
	scan.Start()
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scan.Stop()
	lifecycleManager.Stop()
	if httpProvider != nil {
		httpProvider.StopStream()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("api shutdown error")
	}
	log.Info().Msg("shutdown complete")
}

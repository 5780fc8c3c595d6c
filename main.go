package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/config"
	"github.com/fenilmodi00/ipo-agent/handlers"
	"github.com/fenilmodi00/ipo-agent/jobs"
	"github.com/fenilmodi00/ipo-agent/notify"
	"github.com/fenilmodi00/ipo-agent/services"
	"github.com/fenilmodi00/ipo-agent/shared"
	"github.com/fenilmodi00/ipo-agent/store"
)

func main() {
	cfg := config.LoadConfig()

	if level, parseError := logrus.ParseLevel(cfg.LogLevel); parseError == nil {
		logrus.SetLevel(level)
	} else {
		logrus.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
	}
	log := logrus.StandardLogger()

	// Pick the state backend: Postgres when a URL is configured, JSON
	// files in the data directory otherwise.
	var documentStore store.DocumentStore
	if cfg.DatabaseURL != "" {
		postgresStore, storeError := store.NewPostgresStore(cfg.DatabaseURL, log)
		if storeError != nil {
			log.WithError(storeError).Fatal("Failed to connect to Postgres state store")
		}
		defer postgresStore.Close()
		documentStore = postgresStore
	} else {
		fileStore, storeError := store.NewFileStore(cfg.DataDir, log)
		if storeError != nil {
			log.WithError(storeError).Fatal("Failed to prepare data directory")
		}
		documentStore = fileStore
	}

	repository := services.NewStateRepository(documentStore, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if loadError := repository.LoadAll(ctx); loadError != nil {
		log.WithError(loadError).Fatal("Failed to load agent state")
	}
	repository.FlushAll(ctx)

	utilityService := services.NewUtilityService()

	ipoClient := services.NewIPOAlertsClient(&services.IPOAlertsConfig{
		BaseURL:            cfg.IPOAlertsBaseURL,
		APIKey:             cfg.IPOAlertsAPIKey,
		Status:             cfg.IPOAlertsStatus,
		PageLimit:          cfg.IPOAlertsPageLimit,
		Pages:              cfg.IPOAlertsPages,
		HTTPRequestTimeout: cfg.HTTPTimeout,
		RequestRateLimit:   cfg.APICallDelay,
		MaxRetryAttempts:   cfg.MaxRetryAttempts,
	}, utilityService, repository)
	defer ipoClient.Cleanup()

	investorgainSource := services.NewInvestorgainSource(&services.InvestorgainConfig{
		URL:                cfg.InvestorgainGMPURL,
		HTTPRequestTimeout: cfg.HTTPTimeout,
		RequestRateLimit:   cfg.APICallDelay,
		MaxRetryAttempts:   cfg.MaxRetryAttempts,
		RenderFallback:     cfg.GMPRenderFallback,
	}, utilityService)
	defer investorgainSource.Cleanup()

	registry := services.NewParserRegistry()

	gmpSources := []jobs.GMPSource{investorgainSource}
	for _, sourceURL := range cfg.GMPExtraSources {
		gmpSources = append(gmpSources,
			services.NewTableSource(sourceURL, registry, cfg.HTTPTimeout, cfg.APICallDelay, utilityService))
	}

	var notifier jobs.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		telegramNotifier := notify.NewTelegramNotifier(notify.TelegramConfig{
			BotToken:           cfg.TelegramBotToken,
			ChatID:             cfg.TelegramChatID,
			HTTPRequestTimeout: cfg.HTTPTimeout,
			MaxRetryAttempts:   cfg.MaxRetryAttempts,
		}, log)
		defer telegramNotifier.Cleanup()
		notifier = telegramNotifier
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, messages will only be logged")
		notifier = notify.NewLogNotifier(log)
	}

	metrics := shared.NewAgentMetrics()
	healthTracker := services.NewSourceHealthTracker(3, 3*cfg.PollInterval, log)
	batcher := notify.NewMessageBatcher(cfg.MaxMessageLength)

	pollJob := jobs.NewPollCycleJob(
		ipoClient,
		gmpSources,
		repository,
		cfg.GMPNotifyThreshold,
		notifier,
		batcher,
		healthTracker,
		metrics,
		log,
	)

	log.WithFields(logrus.Fields{
		"data_dir":      cfg.DataDir,
		"poll_interval": cfg.PollInterval.String(),
		"gmp_threshold": cfg.GMPNotifyThreshold,
		"gmp_sources":   len(gmpSources),
		"one_shot":      cfg.OneShot,
	}).Info("IPO agent starting")

	if cfg.OneShot {
		pollJob.RunOnce(ctx)
		metrics.LogSummary()
		log.Info("One-shot run complete, exiting")
		return
	}

	if cfg.EnableStatusServer {
		app := fiber.New()
		app.Use(logger.New())
		app.Use(cors.New())

		statusHandler := handlers.NewStatusHandler(repository, metrics)
		app.Get("/health", statusHandler.GetHealth)
		app.Get("/status", statusHandler.GetStatus)
		app.Get("/ipos", statusHandler.GetIPOs)
		app.Get("/ipos/:key", statusHandler.GetIPOByKey)
		app.Get("/fetch-runs", statusHandler.GetFetchRuns)

		go func() {
			log.WithField("port", cfg.ServerPort).Info("Status server starting")
			if serveError := app.Listen(":" + cfg.ServerPort); serveError != nil {
				log.WithError(serveError).Error("Status server stopped")
			}
		}()

		go func() {
			<-ctx.Done()
			if shutdownError := app.Shutdown(); shutdownError != nil {
				log.WithError(shutdownError).Warn("Status server shutdown failed")
			}
		}()
	}

	pollJob.Start(ctx, cfg.PollInterval)

	metrics.LogSummary()
	log.Info("IPO agent stopped")
}

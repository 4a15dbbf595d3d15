package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"govdocs/cache"
	"govdocs/config"
	"govdocs/database"
	"govdocs/events"
	"govdocs/logger"
	"govdocs/metrics"
	"govdocs/notifier"
	"govdocs/routers"
	"govdocs/services/applications"
	"govdocs/services/catalog"
	"govdocs/services/certificates"
	"govdocs/services/dashboard"
	"govdocs/services/ledger"
	"govdocs/services/users"
	"govdocs/services/workflow"
	"govdocs/storage"
	"govdocs/utils"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := database.ConnectDb(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	store, err := storage.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise blob storage")
	}
	catalogCache := cache.New(cfg.Redis, log)
	defer catalogCache.Close()

	var email notifier.EmailSender
	if cfg.SendGridAPIKey != "" {
		email = notifier.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailSender, cfg.EmailFromName)
	}
	var sms notifier.SMSSender
	if cfg.SMSApiURL != "" {
		sms = notifier.NewRestySMSSender(cfg.SMSApiURL, cfg.SMSApiKey)
	}
	notices := notifier.New(db, email, sms, log)

	observers := events.Observers{metrics.Observer, events.Async(notices)}
	if cfg.NatsURL != "" {
		publisher, err := events.NewNATSPublisher(cfg.NatsURL, log)
		if err != nil {
			log.WithError(err).Warn("NATS unavailable, transition events will not be published")
		} else {
			defer publisher.Close()
			observers = append(observers, publisher)
		}
	}

	userService := users.NewService(db, store, cfg.SaltRound, notices, log)
	catalogService := catalog.NewService(db, catalogCache, log)
	certificateService := certificates.NewService(db, store, cfg.PublicBaseURL, log)
	services := routers.Services{
		Users:        userService,
		Catalog:      catalogService,
		Applications: applications.NewService(db, store, catalogService, userService, observers, log),
		Workflow:     workflow.NewService(db, store, certificateService, userService, observers, log),
		Certificates: certificateService,
		Ledger:       ledger.NewService(db, log),
		Dashboard:    dashboard.NewService(db),
		Store:        store,
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, created, err := userService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.WithError(err).Error("Failed to bootstrap admin")
		} else if created {
			log.WithField("email", cfg.AdminEmail).Info("Bootstrap admin created")
		}
	}

	reminders := utils.NewReminderScheduler(db, notices, cfg.ReminderStaleDays, log)
	if cfg.ReminderCron != "" {
		if err := reminders.Start(cfg.ReminderCron); err != nil {
			log.WithError(err).Error("Failed to start reminder scheduler")
		}
	}

	app := routers.New(services, routers.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RequestLog:     true,
		Logger:         log,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down...")
		reminders.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown failed")
		}
	}()

	log.Printf("Server is running on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

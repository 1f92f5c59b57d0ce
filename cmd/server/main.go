package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aviralsaxena16/Campus-Companion/internal/api"
	"github.com/aviralsaxena16/Campus-Companion/internal/classifier"
	"github.com/aviralsaxena16/Campus-Companion/internal/config"
	"github.com/aviralsaxena16/Campus-Companion/internal/fetcher"
	"github.com/aviralsaxena16/Campus-Companion/internal/gating"
	"github.com/aviralsaxena16/Campus-Companion/internal/repository"
	"github.com/aviralsaxena16/Campus-Companion/internal/scheduler"
	"github.com/aviralsaxena16/Campus-Companion/internal/service"
	"github.com/aviralsaxena16/Campus-Companion/pkg/db"
	"github.com/aviralsaxena16/Campus-Companion/pkg/logger"
	"github.com/aviralsaxena16/Campus-Companion/pkg/mq"
	redisclient "github.com/aviralsaxena16/Campus-Companion/pkg/redis"
	"github.com/aviralsaxena16/Campus-Companion/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting campus-companion server...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("classifier_url", cfg.Classifier.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	// MQ Publisher. Optional: the pipeline runs without it.
	var publisher *mq.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Warn("MQ unavailable, running without event publishing", zap.Error(err))
		} else {
			defer publisher.Close()
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	updateRepo := repository.NewUpdateRepository(dbConn)
	feedbackRepo := repository.NewFeedbackRepository(dbConn)

	// Pipeline stages
	gmailFetcher := fetcher.NewGmailFetcher(cfg.Google, log)
	classifierClient := classifier.NewClient(cfg.Classifier, log)
	policy := gating.NewPolicy(cfg.Gating)

	var pub service.Publisher
	if publisher != nil {
		pub = publisher
	}

	// Services
	scanService := service.NewScanService(userRepo, updateRepo, gmailFetcher, classifierClient, policy, pub, log)
	feedbackService := service.NewFeedbackService(updateRepo, feedbackRepo, log)
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, pub)

	// Scheduler
	dedup := util.NewDeduper(rdb, time.Minute, log)
	registry := scheduler.NewRegistry(scanService, scheduler.NewRealClock(), cfg.Scheduler, dedup, log)
	registry.Start()

	// Handlers
	authHandler := api.NewAuthHandler(authService)
	updatesHandler := api.NewUpdatesHandler(scanService, registry, log)
	feedbackHandler := api.NewFeedbackHandler(feedbackService)

	router := api.NewRouter(authHandler, updatesHandler, feedbackHandler, cfg.JWT.Secret)

	go func() {
		if err := router.Run(cfg.Server.Port); err != nil {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("campus-companion server is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down campus-companion server gracefully...")
	registry.Stop()
	log.Info("campus-companion server shutdown complete")
}

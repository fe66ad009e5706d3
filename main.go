package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ms-booking-finance/internal/analytics"
	analytics_api "ms-booking-finance/internal/analytics/api"
	"ms-booking-finance/internal/auth"
	bookingdb "ms-booking-finance/internal/booking/db"
	bookingredis "ms-booking-finance/internal/booking/redis"
	"ms-booking-finance/internal/config"
	"ms-booking-finance/internal/database"
	"ms-booking-finance/internal/database/migrations"
	"ms-booking-finance/internal/finance_api"
	"ms-booking-finance/internal/kafka"
	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/reconciliation"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Booking Finance Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if cfg.Migrations.AutoMigrate {
		runner := migrations.NewRunner(bunDB, cfg.Migrations, log)
		if err := runner.MigrateUp(); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		if err := runner.Close(); err != nil {
			log.Warn("MIGRATE", err.Error())
		}
	}

	redisClient, err := bookingredis.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("REDIS", err.Error())
	}
	defer redisClient.Close()
	reportCache := bookingredis.NewReportCache(redisClient, cfg.Redis.ReportTTL, log)

	store := bookingdb.New(bunDB)

	// Left nil when kafka is disabled so the service skips publishing.
	var publisher reconciliation.KafkaPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		topics := []string{cfg.Kafka.Topics.PaymentEvents, cfg.Kafka.Topics.Discrepancies}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Discrepancies, log)
		publisher = producer
		log.Info("KAFKA", "Kafka producer initialized successfully")
	}

	service := reconciliation.NewService(store, reportCache, publisher, cfg.Reconciliation, log)
	service.Locker = bookingredis.NewSchoolLock(redisClient, cfg.Redis.RecalcLockTTL, log)

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.PaymentEvents, cfg.Kafka.GroupID, log)
		go func() {
			if err := consumer.Start(ctx, service.HandlePaymentEvent); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Payment event consumer stopped: %v", err))
			}
			if err := consumer.Close(); err != nil {
				log.Warn("KAFKA", fmt.Sprintf("Failed to close consumer: %v", err))
			}
		}()
	}

	handler := finance_api.NewHandler(service, store, log)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(analytics.NewDB(bunDB)), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(finance_api.RequestLogger(log))

	r.Get("/health", finance_api.Health)

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			verifier, err := auth.NewVerifier(ctx, cfg.Auth)
			if err != nil {
				log.Fatal("AUTH", fmt.Sprintf("Failed to build token verifier: %v", err))
			}
			r.Use(auth.Middleware(verifier, log))
			log.Info("AUTH", "JWT middleware applied to finance routes")
		} else {
			log.Warn("AUTH", "Authentication disabled, finance routes are public")
		}
		handler.Routes(r)
		log.Info("ROUTER", "Finance routes registered under /api/finance")
		analyticsHandler.RegisterRoutes(r)
		log.Info("ROUTER", "Analytics routes registered under /api/finance/analytics")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Finance Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
	log.Info("HTTP", "Booking Finance Service shutdown complete")
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/honeynil/PaymentServiceBF/internal/api"
	"github.com/honeynil/PaymentServiceBF/internal/config"
	"github.com/honeynil/PaymentServiceBF/internal/expiry"
	"github.com/honeynil/PaymentServiceBF/internal/handler"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/auth"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/kafka"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/redis"
	"github.com/honeynil/PaymentServiceBF/internal/ledger"
	"github.com/honeynil/PaymentServiceBF/internal/notification"
	"github.com/honeynil/PaymentServiceBF/internal/observability"
	"github.com/honeynil/PaymentServiceBF/internal/payment"
	"github.com/honeynil/PaymentServiceBF/internal/repository"
	"github.com/honeynil/PaymentServiceBF/internal/repository/memory"
	core "github.com/honeynil/PaymentServiceBF/internal/repository/postgres"
	service "github.com/honeynil/PaymentServiceBF/internal/services"
	_ "github.com/lib/pq"
)

// transactionStore is what both the service and the overdue scan need.
type transactionStore interface {
	repository.TransactionRepository
	expiry.OverdueLister
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логи, метрики, трейсы
	shutdownTracing := observability.Setup(cfg)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("failed to shutdown tracer", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище
	var (
		txRepo    transactionStore
		adminRepo repository.AdminRepository
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Store.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("Failed to ping Postgres: %v", err)
		}
		txRepo = core.NewPostgresTransactionRepository(db)
		adminRepo = core.NewPostgresAdminRepository(db)
	default:
		slog.Warn("using in-memory store, data is lost on restart")
		txRepo = memory.NewTransactionRepository()
		adminRepo = memory.NewAdminRepository()
	}

	redisClient, err := redis.NewClient(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	var queue expiry.Queue = expiry.NewRedisQueue(redisClient, expiry.DefaultQueueKey)
	if cfg.Expiry.Queue == "memory" {
		queue = expiry.NewMemoryQueue()
	}

	catalog, err := payment.NewCatalog(cfg.Payment, cfg.HTTP.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to build payment catalog: %v", err)
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to init token service: %v", err)
	}

	// Уведомления: Kafka или локальная шина
	dispatcher := notification.NewDispatcher(
		notification.NewLogNotifier(slog.Default()),
		notification.NewWebhookClient(cfg.Webhook.Timeout),
	)
	var publisher service.EventPublisher = dispatcher
	if cfg.Kafka.EventBus == "kafka" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, dispatcher)
		defer consumer.Close()
		go consumer.Consume(ctx)
	}

	verifier := ledger.WithTimeout(ledger.StubVerifier{}, cfg.Ledger.VerifyTimeout)
	paymentSvc := service.NewPaymentService(txRepo, catalog, verifier, queue, publisher)
	adminSvc := service.NewAdminService(adminRepo, redisClient, tokens)

	sweeper := expiry.NewSweeper(queue, paymentSvc, txRepo,
		expiry.WithInterval(cfg.Expiry.SweepInterval),
		expiry.WithBatchSize(cfg.Expiry.BatchSize),
	)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.SetupRouter(handler.NewHandler(paymentSvc, adminSvc), redisClient, tokens, cfg.HTTP.CORSAllowedOrigins),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := paymentSvc.Drain(shutdownCtx); err != nil {
		slog.Warn("pending events not published before shutdown", "error", err)
	}
	slog.Info("server stopped")
}


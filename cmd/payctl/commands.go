package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/expiry"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/auth"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/kafka"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/redis"
	"github.com/honeynil/PaymentServiceBF/internal/ledger"
	"github.com/honeynil/PaymentServiceBF/internal/notification"
	"github.com/honeynil/PaymentServiceBF/internal/payment"
	core "github.com/honeynil/PaymentServiceBF/internal/repository/postgres"
	service "github.com/honeynil/PaymentServiceBF/internal/services"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := core.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var username, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := service.NewAdminService(core.NewPostgresAdminRepository(db), nil, nil)
			admin, err := svc.CreateAdmin(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", admin.Username, admin.ID)
			return nil
		},
	}
	create.Flags().StringVarP(&username, "username", "u", "", "admin username")
	create.Flags().StringVarP(&password, "password", "p", "", "admin password (at least 8 characters)")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func tokenCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token and register it as the live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			redisClient, err := redis.NewClient(cmd.Context(), cfg.Redis.Addr)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}

			svc := service.NewAdminService(core.NewPostgresAdminRepository(db), redisClient, tokens)
			token, expiresAt, err := svc.IssueToken(cmd.Context(), username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// sweepEnv is the wiring one sweep run needs.
type sweepEnv struct {
	sweeper *expiry.Sweeper
	drain   func(ctx context.Context) error
	close   func()
}

type sweepEnvFunc func(ctx context.Context) (*sweepEnv, error)

// openSweepEnv wires the sweeper against Postgres and the Redis expiry queue.
func openSweepEnv(ctx context.Context) (*sweepEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	catalog, err := payment.NewCatalog(cfg.Payment, cfg.HTTP.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	redisClient, err := redis.NewClient(ctx, cfg.Redis.Addr)
	if err != nil {
		db.Close()
		return nil, err
	}
	closers := []func() error{redisClient.Close, db.Close}

	var publisher service.EventPublisher = notification.NewDispatcher(
		notification.NewLogNotifier(slog.Default()),
		notification.NewWebhookClient(cfg.Webhook.Timeout),
	)
	if cfg.Kafka.EventBus == "kafka" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append([]func() error{producer.Close}, closers...)
		publisher = producer
	}

	repo := core.NewPostgresTransactionRepository(db)
	queue := expiry.NewRedisQueue(redisClient, expiry.DefaultQueueKey)
	svc := service.NewPaymentService(repo, catalog, ledger.StubVerifier{}, queue, publisher)
	return &sweepEnv{
		sweeper: expiry.NewSweeper(queue, svc, repo, expiry.WithBatchSize(cfg.Expiry.BatchSize)),
		drain:   svc.Drain,
		close: func() {
			for _, c := range closers {
				if err := c(); err != nil {
					slog.Warn("failed to close resource", "error", err)
				}
			}
		},
	}, nil
}

func sweepCmd(open sweepEnvFunc) *cobra.Command {
	var scan bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue PENDING transactions once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := open(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			expired, err := env.sweeper.SweepOnce(ctx)
			if err != nil {
				return err
			}
			if scan {
				n, err := env.sweeper.ScanOverdue(ctx)
				if err != nil {
					return err
				}
				expired += n
			}
			if err := env.drain(ctx); err != nil {
				slog.Warn("pending events not published", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d transaction(s)\n", expired)
			return nil
		},
	}
	cmd.Flags().BoolVar(&scan, "scan", true, "also scan the store for overdue transactions missing from the queue")
	return cmd
}

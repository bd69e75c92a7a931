package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTP struct {
		Addr               string        `envconfig:"HTTP_ADDR" default:":8080"`
		ReadTimeout        time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
		WriteTimeout       time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
		ShutdownTimeout    time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"5s"`
		CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
		PublicBaseURL      string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	}

	Store struct {
		// postgres or memory
		Driver      string `envconfig:"STORE_DRIVER" default:"postgres"`
		PostgresDSN string `envconfig:"POSTGRES_DSN" default:"host=localhost user=postgres password=postgres dbname=payments sslmode=disable"`
	}

	Redis struct {
		Addr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	}

	Kafka struct {
		// kafka or local
		EventBus string   `envconfig:"EVENT_BUS" default:"kafka"`
		Brokers  []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
		Topic    string   `envconfig:"KAFKA_TOPIC" default:"payment-transactions"`
		GroupID  string   `envconfig:"KAFKA_GROUP_ID" default:"payment-notifications"`
	}

	Auth struct {
		JWTSecret string        `envconfig:"JWT_SECRET" default:"supersecret"`
		TokenTTL  time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"1h"`
	}

	Payment Payment

	Expiry struct {
		// redis or memory
		Queue         string        `envconfig:"EXPIRY_QUEUE" default:"redis"`
		SweepInterval time.Duration `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"5s"`
		BatchSize     int64         `envconfig:"EXPIRY_BATCH_SIZE" default:"100"`
	}

	Ledger struct {
		VerifyTimeout time.Duration `envconfig:"LEDGER_VERIFY_TIMEOUT" default:"5s"`
	}

	Webhook struct {
		Timeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	}

	Observability struct {
		ServiceName  string `envconfig:"SERVICE_NAME" default:"payment-service"`
		LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
		OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	}
}

// Payment holds the receiving accounts and fee table shown to clients.
type Payment struct {
	FeeTable map[string]string `envconfig:"PAYMENT_FEE_TABLE" default:"ORANGE_MONEY_BF:0,MOOV_MONEY_BF:0,BANK_TRANSFER:3,BTC:3,USDT_TRC20:3"`

	BTCAddress  string `envconfig:"BTC_ADDRESS" default:"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"`
	USDTAddress string `envconfig:"USDT_TRC20_ADDRESS" default:"TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf"`

	OrangeMoneyNumbers []string `envconfig:"ORANGE_MONEY_NUMBERS" default:"+22670000001,+22677000001"`
	MoovMoneyNumbers   []string `envconfig:"MOOV_MONEY_NUMBERS" default:"+22660000001,+22671000001"`
	MobileMoneyHolder  string   `envconfig:"MOBILE_MONEY_HOLDER" default:"FASO SERVICES SARL"`

	BankName          string `envconfig:"BANK_NAME" default:"Coris Bank International"`
	BankAccountNumber string `envconfig:"BANK_ACCOUNT_NUMBER" default:"BF084 01001 000123456789 45"`
	BankAccountHolder string `envconfig:"BANK_ACCOUNT_HOLDER" default:"FASO SERVICES SARL"`
	BankSWIFT         string `envconfig:"BANK_SWIFT" default:"CORIBFBF"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using environment and defaults", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTP.Addr,
		"store_driver", cfg.Store.Driver,
		"redis_addr", cfg.Redis.Addr,
		"event_bus", cfg.Kafka.EventBus,
		"kafka_brokers", cfg.Kafka.Brokers,
		"expiry_queue", cfg.Expiry.Queue)
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want postgres or memory", c.Store.Driver)
	}
	switch c.Kafka.EventBus {
	case "kafka", "local":
	default:
		return fmt.Errorf("invalid EVENT_BUS %q: want kafka or local", c.Kafka.EventBus)
	}
	switch c.Expiry.Queue {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid EXPIRY_QUEUE %q: want redis or memory", c.Expiry.Queue)
	}
	if c.Expiry.SweepInterval <= 0 {
		return fmt.Errorf("EXPIRY_SWEEP_INTERVAL must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

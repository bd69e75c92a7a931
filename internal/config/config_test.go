package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Ledger.VerifyTimeout)
	assert.Equal(t, "3", cfg.Payment.FeeTable["BANK_TRANSFER"])
	assert.Equal(t, "0", cfg.Payment.FeeTable["ORANGE_MONEY_BF"])
	assert.Len(t, cfg.Payment.OrangeMoneyNumbers, 2)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("EVENT_BUS", "local")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "250ms")
	t.Setenv("PAYMENT_FEE_TABLE", "BTC:1.5,BANK_TRANSFER:2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "local", cfg.Kafka.EventBus)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Expiry.SweepInterval)
	assert.Equal(t, map[string]string{"BTC": "1.5", "BANK_TRANSFER": "2"}, cfg.Payment.FeeTable)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"store driver", "STORE_DRIVER", "mongo"},
		{"event bus", "EVENT_BUS", "nats"},
		{"expiry queue", "EXPIRY_QUEUE", "cron"},
		{"sweep interval", "EXPIRY_SWEEP_INTERVAL", "0s"},
		{"duration", "HTTP_READ_TIMEOUT", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

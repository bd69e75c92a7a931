package observability

import (
	"context"

	"github.com/honeynil/PaymentServiceBF/internal/config"
	"github.com/honeynil/PaymentServiceBF/internal/infrastructure/observability"
)

// Setup initialises logging, metrics and tracing and returns the tracer shutdown func.
func Setup(cfg *config.Config) func(context.Context) error {
	observability.InitLogger(cfg.Observability.LogLevel)
	observability.InitMetrics()
	return observability.InitTracing(cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint)
}

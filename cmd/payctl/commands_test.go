package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/config"
	"github.com/honeynil/PaymentServiceBF/internal/expiry"
	"github.com/honeynil/PaymentServiceBF/internal/ledger"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/honeynil/PaymentServiceBF/internal/payment"
	"github.com/honeynil/PaymentServiceBF/internal/repository/memory"
	service "github.com/honeynil/PaymentServiceBF/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepFixture struct {
	repo    *memory.TransactionRepository
	queued  string
	missing string
	closed  bool
	open    sweepEnvFunc
}

// newSweepFixture stores two PENDING transactions past their deadline. Only
// the first one is in the expiry queue.
func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	catalog, err := payment.NewCatalog(config.Payment{
		FeeTable:           map[string]string{"ORANGE_MONEY_BF": "0", "MOOV_MONEY_BF": "0", "BANK_TRANSFER": "3", "BTC": "3", "USDT_TRC20": "3"},
		BTCAddress:         "bc1qtest",
		USDTAddress:        "Ttest",
		OrangeMoneyNumbers: []string{"+22670000001"},
		MoovMoneyNumbers:   []string{"+22660000001"},
		BankName:           "Coris Bank",
	}, "https://pay.example.com")
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	repo := memory.NewTransactionRepository()
	queue := expiry.NewMemoryQueue()
	svc := service.NewPaymentService(repo, catalog, ledger.StubVerifier{}, queue, nil, service.WithClock(clock))
	unscheduled := service.NewPaymentService(repo, catalog, ledger.StubVerifier{}, nil, nil, service.WithClock(clock))

	in := service.CreateTransactionInput{
		Amount:        5000,
		PaymentMethod: models.MethodOrangeMoneyBF,
		ClientInfo:    models.ClientInfo{Name: "Awa", Phone: "+22670000000"},
	}
	ctx := context.Background()
	queued, err := svc.CreateTransaction(ctx, in)
	require.NoError(t, err)
	missing, err := unscheduled.CreateTransaction(ctx, in)
	require.NoError(t, err)

	now = now.Add(models.ExpiryWindow + time.Minute)

	f := &sweepFixture{repo: repo, queued: queued.ID, missing: missing.ID}
	f.open = func(context.Context) (*sweepEnv, error) {
		return &sweepEnv{
			sweeper: expiry.NewSweeper(queue, svc, repo, expiry.WithClock(clock)),
			drain:   svc.Drain,
			close:   func() { f.closed = true },
		}, nil
	}
	return f
}

func (f *sweepFixture) status(t *testing.T, id string) models.Status {
	t.Helper()
	tx, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return tx.Status
}

func runSweep(t *testing.T, open sweepEnvFunc, args ...string) (string, error) {
	t.Helper()
	cmd := sweepCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSweepCmd(t *testing.T) {
	t.Run("queue and scan", func(t *testing.T) {
		f := newSweepFixture(t)

		out, err := runSweep(t, f.open)
		require.NoError(t, err)
		assert.Equal(t, "expired 2 transaction(s)\n", out)
		assert.Equal(t, models.StatusExpired, f.status(t, f.queued))
		assert.Equal(t, models.StatusExpired, f.status(t, f.missing))
		assert.True(t, f.closed)

		out, err = runSweep(t, f.open)
		require.NoError(t, err)
		assert.Equal(t, "expired 0 transaction(s)\n", out)
	})

	t.Run("queue only", func(t *testing.T) {
		f := newSweepFixture(t)

		out, err := runSweep(t, f.open, "--scan=false")
		require.NoError(t, err)
		assert.Equal(t, "expired 1 transaction(s)\n", out)
		assert.Equal(t, models.StatusExpired, f.status(t, f.queued))
		assert.Equal(t, models.StatusPending, f.status(t, f.missing))
	})

	t.Run("wiring error", func(t *testing.T) {
		boom := errors.New("postgres unreachable")
		_, err := runSweep(t, func(context.Context) (*sweepEnv, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	})
}

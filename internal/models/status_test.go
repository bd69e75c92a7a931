package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusProcessing, StatusCompleted, StatusExpired, StatusCancelled},
		StatusProcessing: {StatusCompleted, StatusCancelled, StatusFailed},
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusFailed, StatusExpired} {
		assert.True(t, s.IsTerminal(), s)
		for _, to := range Statuses() {
			assert.False(t, s.CanTransitionTo(to), "%s is terminal", s)
		}
	}
}

func TestStatus_Message(t *testing.T) {
	assert.Equal(t, "En attente de paiement", StatusPending.Message())
	assert.Equal(t, "Paiement en cours de vérification", StatusProcessing.Message())
	assert.Equal(t, "Paiement confirmé et validé", StatusCompleted.Message())
	assert.Equal(t, "Transaction annulée", StatusCancelled.Message())
	assert.Equal(t, "Échec du paiement", StatusFailed.Message())
	assert.Equal(t, "Transaction expirée", StatusExpired.Message())
	assert.False(t, Status("UNKNOWN").Valid())
}

func TestPaymentMethod_Family(t *testing.T) {
	tests := map[PaymentMethod]MethodFamily{
		MethodOrangeMoneyBF: FamilyMobileMoney,
		MethodMoovMoneyBF:   FamilyMobileMoney,
		MethodBankTransfer:  FamilyBankTransfer,
		MethodBTC:           FamilyCrypto,
		MethodUSDTTRC20:     FamilyCrypto,
	}
	for method, want := range tests {
		got, ok := method.Family()
		assert.True(t, ok)
		assert.Equal(t, want, got, method)
	}

	_, ok := PaymentMethod("WAVE_MONEY").Family()
	assert.False(t, ok)
}

func TestTransaction_CloneIsDeep(t *testing.T) {
	amount := int64(100)
	tx := &Transaction{
		ID:          "TXN-1",
		ProductInfo: ProductInfo{Metadata: map[string]string{"k": "v"}},
		PaymentDetails: PaymentDetails{
			Type:        FamilyMobileMoney,
			MobileMoney: &MobileMoneyDetails{Numbers: []string{"+22670000000"}},
		},
		ProofData:  &ProofData{Type: FamilyCrypto, Crypto: &CryptoProof{TransactionHash: "abc"}},
		Validation: &Validation{ValidatedAmount: &amount},
	}

	c := tx.Clone()
	c.ProductInfo.Metadata["k"] = "changed"
	c.PaymentDetails.MobileMoney.Numbers[0] = "changed"
	c.ProofData.Crypto.AutoVerified = true
	*c.Validation.ValidatedAmount = 1

	assert.Equal(t, "v", tx.ProductInfo.Metadata["k"])
	assert.Equal(t, "+22670000000", tx.PaymentDetails.MobileMoney.Numbers[0])
	assert.False(t, tx.ProofData.Crypto.AutoVerified)
	assert.Equal(t, int64(100), *tx.Validation.ValidatedAmount)
}

func TestTransaction_IsExpiredAt(t *testing.T) {
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tx := &Transaction{CreatedAt: created, ExpiresAt: created.Add(ExpiryWindow)}

	assert.False(t, tx.IsExpiredAt(created.Add(ExpiryWindow)))
	assert.True(t, tx.IsExpiredAt(created.Add(ExpiryWindow+time.Second)))
}

func TestStats_Count(t *testing.T) {
	var s Stats
	s.Count(&Transaction{Status: StatusCompleted, TotalAmount: 10300})
	s.Count(&Transaction{Status: StatusCompleted, TotalAmount: 5000})
	s.Count(&Transaction{Status: StatusPending, TotalAmount: 700})
	s.Count(&Transaction{Status: StatusCancelled, TotalAmount: 700})

	assert.Equal(t, Stats{Total: 4, Pending: 1, Completed: 2, Cancelled: 1, TotalAmount: 15300}, s)
}

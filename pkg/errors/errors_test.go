package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	t.Run("kind sentinel matches any message", func(t *testing.T) {
		assert.ErrorIs(t, ErrCannotValidate, ErrInvalidState)
		assert.ErrorIs(t, Validation("amount", "bad"), ErrValidation)
	})

	t.Run("message sentinel is exact", func(t *testing.T) {
		assert.ErrorIs(t, ErrCannotValidate, ErrCannotValidate)
		assert.False(t, stderrors.Is(ErrCannotValidate, ErrCannotConfirm))
	})

	t.Run("different kinds never match", func(t *testing.T) {
		assert.False(t, stderrors.Is(ErrTransactionExpired, ErrInvalidState))
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("submit proof: %w", ErrTransactionNotFound)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
	assert.Equal(t, KindExpired, KindOf(ErrTransactionExpired))

	err := Validation("paymentMethod", "Méthode de paiement inconnue: %s", "PAYPAL")
	assert.Equal(t, "paymentMethod", err.Field)
	assert.Equal(t, "Méthode de paiement inconnue: PAYPAL", err.Error())
	assert.Equal(t, "unauthorized", ErrUnauthorized.Error())
}

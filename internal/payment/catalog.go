// Package payment holds the per-method configuration used when a transaction
// is created: the fee table and the receiving accounts shown to the client.
package payment

import (
	"fmt"
	"math"
	"strings"

	"github.com/honeynil/PaymentServiceBF/internal/config"
	"github.com/honeynil/PaymentServiceBF/internal/models"
	"github.com/shopspring/decimal"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxTotal = decimal.NewFromInt(math.MaxInt64)
)

type Catalog struct {
	feePercents   map[models.PaymentMethod]decimal.Decimal
	cryptoAddress map[models.PaymentMethod]string
	mobileNumbers map[models.PaymentMethod][]string
	mobileHolder  string
	bank          models.BankTransferDetails
	publicBaseURL string
}

// NewCatalog parses the fee table and validates that every method is configured.
func NewCatalog(cfg config.Payment, publicBaseURL string) (*Catalog, error) {
	c := &Catalog{
		feePercents: make(map[models.PaymentMethod]decimal.Decimal, len(cfg.FeeTable)),
		cryptoAddress: map[models.PaymentMethod]string{
			models.MethodBTC:       cfg.BTCAddress,
			models.MethodUSDTTRC20: cfg.USDTAddress,
		},
		mobileNumbers: map[models.PaymentMethod][]string{
			models.MethodOrangeMoneyBF: cfg.OrangeMoneyNumbers,
			models.MethodMoovMoneyBF:   cfg.MoovMoneyNumbers,
		},
		mobileHolder: cfg.MobileMoneyHolder,
		bank: models.BankTransferDetails{
			BankName:      cfg.BankName,
			AccountNumber: cfg.BankAccountNumber,
			AccountHolder: cfg.BankAccountHolder,
			SWIFT:         cfg.BankSWIFT,
		},
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}

	for method, raw := range cfg.FeeTable {
		m := models.PaymentMethod(strings.TrimSpace(method))
		if !m.Valid() {
			return nil, fmt.Errorf("fee table: unknown payment method %q", method)
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("fee table: invalid percent %q for %s: %w", raw, m, err)
		}
		if pct.IsNegative() {
			return nil, fmt.Errorf("fee table: negative percent for %s", m)
		}
		c.feePercents[m] = pct
	}

	for _, m := range models.PaymentMethods() {
		if _, ok := c.feePercents[m]; !ok {
			return nil, fmt.Errorf("fee table: missing payment method %s", m)
		}
	}
	return c, nil
}

// FeePercent returns the configured fee percentage for method.
func (c *Catalog) FeePercent(method models.PaymentMethod) decimal.Decimal {
	return c.feePercents[method]
}

// Fees computes round(amount * feePercent / 100), half away from zero.
func (c *Catalog) Fees(method models.PaymentMethod, amount int64) int64 {
	return c.fees(method, amount).IntPart()
}

// Quote returns the fees and the total charged for amount. ok is false when
// the total does not fit in an int64.
func (c *Catalog) Quote(method models.PaymentMethod, amount int64) (fees, total int64, ok bool) {
	f := c.fees(method, amount)
	t := f.Add(decimal.NewFromInt(amount))
	if t.GreaterThan(maxTotal) {
		return 0, 0, false
	}
	return f.IntPart(), t.IntPart(), true
}

func (c *Catalog) fees(method models.PaymentMethod, amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).
		Mul(c.feePercents[method]).
		Div(hundred).
		Round(0)
}

// Details builds the payment instructions for a freshly created transaction.
func (c *Catalog) Details(tx *models.Transaction) (models.PaymentDetails, error) {
	family, ok := tx.PaymentMethod.Family()
	if !ok {
		return models.PaymentDetails{}, fmt.Errorf("unknown payment method %q", tx.PaymentMethod)
	}

	switch family {
	case models.FamilyCrypto:
		return models.PaymentDetails{
			Type: family,
			Crypto: &models.CryptoDetails{
				Address:   c.cryptoAddress[tx.PaymentMethod],
				QRCodeURL: fmt.Sprintf("%s/transactions/%s/qr", c.publicBaseURL, tx.ID),
				Network:   cryptoNetwork(tx.PaymentMethod),
			},
		}, nil
	case models.FamilyMobileMoney:
		numbers := append([]string(nil), c.mobileNumbers[tx.PaymentMethod]...)
		return models.PaymentDetails{
			Type: family,
			MobileMoney: &models.MobileMoneyDetails{
				Numbers:    numbers,
				HolderName: c.mobileHolder,
				Instructions: fmt.Sprintf("Envoyez %d FCFA au %s (%s) puis soumettez votre numéro de paiement.",
					tx.TotalAmount, strings.Join(numbers, " ou "), c.mobileHolder),
			},
		}, nil
	default:
		bank := c.bank
		bank.Reference = tx.ID
		return models.PaymentDetails{Type: family, BankTransfer: &bank}, nil
	}
}

// InvoiceURL is where the invoice with the given id can be downloaded.
func (c *Catalog) InvoiceURL(invoiceID string) string {
	return fmt.Sprintf("%s/invoices/%s", c.publicBaseURL, invoiceID)
}

func cryptoNetwork(method models.PaymentMethod) string {
	if method == models.MethodUSDTTRC20 {
		return "TRON (TRC20)"
	}
	return "Bitcoin"
}

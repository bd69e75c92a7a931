package models

import "time"

// ExpiryWindow is how long a transaction stays payable after creation.
const ExpiryWindow = 15 * time.Minute

type Transaction struct {
	ID             string         `json:"id"`
	Status         Status         `json:"status"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
	Amount         int64          `json:"amount"`
	Fees           int64          `json:"fees"`
	TotalAmount    int64          `json:"totalAmount"`
	ClientInfo     ClientInfo     `json:"clientInfo"`
	ProductInfo    ProductInfo    `json:"productInfo"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
	ProofData      *ProofData     `json:"proofData,omitempty"`
	Validation     *Validation    `json:"validation,omitempty"`
	Cancellation   *Cancellation  `json:"cancellation,omitempty"`
	Rejection      *Rejection     `json:"rejection,omitempty"`
	Invoice        *Invoice       `json:"invoice,omitempty"`
	ExpiresAt      time.Time      `json:"expiresAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type ClientInfo struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type ProductInfo struct {
	Service     string            `json:"service,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	Description string            `json:"description,omitempty"`
	WebhookURL  string            `json:"webhookUrl,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Validation struct {
	ValidatedAt      time.Time `json:"validatedAt"`
	ValidatedBy      string    `json:"validatedBy"`
	AdminNote        string    `json:"adminNote,omitempty"`
	ValidatedAmount  *int64    `json:"validatedAmount,omitempty"`
	AmountDifference *int64    `json:"amountDifference,omitempty"`
}

type Cancellation struct {
	CancelledAt    time.Time `json:"cancelledAt"`
	CancelledBy    string    `json:"cancelledBy"`
	Reason         string    `json:"reason"`
	RefundRequired bool      `json:"refundRequired"`
}

type Rejection struct {
	RejectedAt time.Time `json:"rejectedAt"`
	RejectedBy string    `json:"rejectedBy"`
	Reason     string    `json:"reason"`
}

type Invoice struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	IssuedAt time.Time `json:"issuedAt"`
}

// IsExpiredAt reports whether the payment window has closed at now.
func (t *Transaction) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// MatchesClient reports whether clientID identifies the transaction's client
// by id, email or phone.
func (t *Transaction) MatchesClient(clientID string) bool {
	if clientID == "" {
		return true
	}
	c := t.ClientInfo
	return clientID == c.ID || clientID == c.Email || clientID == c.Phone
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	if t.ProductInfo.Metadata != nil {
		c.ProductInfo.Metadata = make(map[string]string, len(t.ProductInfo.Metadata))
		for k, v := range t.ProductInfo.Metadata {
			c.ProductInfo.Metadata[k] = v
		}
	}
	c.PaymentDetails = t.PaymentDetails.clone()
	if t.ProofData != nil {
		p := t.ProofData.clone()
		c.ProofData = &p
	}
	if t.Validation != nil {
		v := *t.Validation
		if v.ValidatedAmount != nil {
			amount := *v.ValidatedAmount
			v.ValidatedAmount = &amount
		}
		if v.AmountDifference != nil {
			diff := *v.AmountDifference
			v.AmountDifference = &diff
		}
		c.Validation = &v
	}
	if t.Cancellation != nil {
		v := *t.Cancellation
		c.Cancellation = &v
	}
	if t.Rejection != nil {
		v := *t.Rejection
		c.Rejection = &v
	}
	if t.Invoice != nil {
		v := *t.Invoice
		c.Invoice = &v
	}
	return &c
}

func (d PaymentDetails) clone() PaymentDetails {
	c := d
	if d.Crypto != nil {
		v := *d.Crypto
		c.Crypto = &v
	}
	if d.MobileMoney != nil {
		v := *d.MobileMoney
		v.Numbers = append([]string(nil), d.MobileMoney.Numbers...)
		c.MobileMoney = &v
	}
	if d.BankTransfer != nil {
		v := *d.BankTransfer
		c.BankTransfer = &v
	}
	return c
}

func (p ProofData) clone() ProofData {
	c := p
	if p.Crypto != nil {
		v := *p.Crypto
		c.Crypto = &v
	}
	if p.MobileMoney != nil {
		v := *p.MobileMoney
		c.MobileMoney = &v
	}
	if p.BankTransfer != nil {
		v := *p.BankTransfer
		c.BankTransfer = &v
	}
	return c
}

// Stats aggregates the store for the admin dashboard.
type Stats struct {
	Total       int64 `json:"total"`
	Pending     int64 `json:"pending"`
	Processing  int64 `json:"processing"`
	Completed   int64 `json:"completed"`
	Cancelled   int64 `json:"cancelled"`
	Failed      int64 `json:"failed"`
	Expired     int64 `json:"expired"`
	TotalAmount int64 `json:"totalAmount"`
}

// Count adds one transaction to the aggregate.
func (s *Stats) Count(tx *Transaction) {
	s.Total++
	switch tx.Status {
	case StatusPending:
		s.Pending++
	case StatusProcessing:
		s.Processing++
	case StatusCompleted:
		s.Completed++
		s.TotalAmount += tx.TotalAmount
	case StatusCancelled:
		s.Cancelled++
	case StatusFailed:
		s.Failed++
	case StatusExpired:
		s.Expired++
	}
}

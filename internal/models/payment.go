package models

import "time"

type PaymentMethod string

const (
	MethodOrangeMoneyBF PaymentMethod = "ORANGE_MONEY_BF"
	MethodMoovMoneyBF   PaymentMethod = "MOOV_MONEY_BF"
	MethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	MethodBTC           PaymentMethod = "BTC"
	MethodUSDTTRC20     PaymentMethod = "USDT_TRC20"
)

// MethodFamily groups payment methods that share instructions and proof shape.
type MethodFamily string

const (
	FamilyCrypto       MethodFamily = "crypto"
	FamilyMobileMoney  MethodFamily = "mobile_money"
	FamilyBankTransfer MethodFamily = "bank_transfer"
)

func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{MethodOrangeMoneyBF, MethodMoovMoneyBF, MethodBankTransfer, MethodBTC, MethodUSDTTRC20}
}

// Family returns the method family and false for an unknown method.
func (m PaymentMethod) Family() (MethodFamily, bool) {
	switch m {
	case MethodBTC, MethodUSDTTRC20:
		return FamilyCrypto, true
	case MethodOrangeMoneyBF, MethodMoovMoneyBF:
		return FamilyMobileMoney, true
	case MethodBankTransfer:
		return FamilyBankTransfer, true
	default:
		return "", false
	}
}

func (m PaymentMethod) Valid() bool {
	_, ok := m.Family()
	return ok
}

// PaymentDetails holds the instructions given to the client at creation.
// Exactly one variant is set, matching Type.
type PaymentDetails struct {
	Type         MethodFamily         `json:"type"`
	Crypto       *CryptoDetails       `json:"crypto,omitempty"`
	MobileMoney  *MobileMoneyDetails  `json:"mobileMoney,omitempty"`
	BankTransfer *BankTransferDetails `json:"bankTransfer,omitempty"`
}

type CryptoDetails struct {
	Address   string `json:"address"`
	QRCodeURL string `json:"qrCodeUrl"`
	Network   string `json:"network"`
}

type MobileMoneyDetails struct {
	Numbers      []string `json:"numbers"`
	HolderName   string   `json:"holderName"`
	Instructions string   `json:"instructions"`
}

type BankTransferDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
	SWIFT         string `json:"swift"`
	Reference     string `json:"reference"`
}

// ProofData is the evidence a client submitted. Exactly one variant is set.
type ProofData struct {
	Type         MethodFamily       `json:"type"`
	SubmittedAt  time.Time          `json:"submittedAt"`
	Crypto       *CryptoProof       `json:"crypto,omitempty"`
	MobileMoney  *MobileMoneyProof  `json:"mobileMoney,omitempty"`
	BankTransfer *BankTransferProof `json:"bankTransfer,omitempty"`
}

type CryptoProof struct {
	TransactionHash string `json:"transactionHash"`
	AutoVerified    bool   `json:"autoVerified"`
}

type MobileMoneyProof struct {
	PayerNumber string `json:"payerNumber"`
	PayerName   string `json:"payerName,omitempty"`
}

type BankTransferProof struct {
	Receipt ReceiptRef `json:"receipt"`
}

// ReceiptRef points at an uploaded receipt. The file itself is not stored here.
type ReceiptRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ProofSubmission is the raw client payload. Which fields are required
// depends on the transaction's method family.
type ProofSubmission struct {
	TransactionHash string
	PayerNumber     string
	PayerName       string
	Receipt         *ReceiptRef
}

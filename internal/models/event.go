package models

import "time"

type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventProofSubmitted     EventType = "transaction.proof_submitted"
	EventValidated          EventType = "transaction.validated"
	EventCancelled          EventType = "transaction.cancelled"
	EventRejected           EventType = "transaction.rejected"
	EventExpired            EventType = "transaction.expired"
)

const TopicTransactions = "payment-transactions"

// TransactionEvent is published after every persisted state change.
type TransactionEvent struct {
	Event         EventType    `json:"event"`
	TransactionID string       `json:"transactionId"`
	Status        Status       `json:"status"`
	OccurredAt    time.Time    `json:"occurredAt"`
	Transaction   *Transaction `json:"transaction"`
}

func NewTransactionEvent(event EventType, tx *Transaction, at time.Time) TransactionEvent {
	return TransactionEvent{
		Event:         event,
		TransactionID: tx.ID,
		Status:        tx.Status,
		OccurredAt:    at,
		Transaction:   tx.Clone(),
	}
}

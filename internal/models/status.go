package models

// Status is the lifecycle state of a payment transaction.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusFailed     Status = "FAILED"
	StatusExpired    Status = "EXPIRED"
)

var statusMessages = map[Status]string{
	StatusPending:    "En attente de paiement",
	StatusProcessing: "Paiement en cours de vérification",
	StatusCompleted:  "Paiement confirmé et validé",
	StatusCancelled:  "Transaction annulée",
	StatusFailed:     "Échec du paiement",
	StatusExpired:    "Transaction expirée",
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled, StatusFailed, StatusExpired}
}

func (s Status) Valid() bool {
	_, ok := statusMessages[s]
	return ok
}

// Message is the client facing description of the status.
func (s Status) Message() string {
	return statusMessages[s]
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine allows s -> target.
//
//   - PENDING -> PROCESSING, COMPLETED, EXPIRED, CANCELLED
//   - PROCESSING -> COMPLETED, CANCELLED, FAILED
//
// Terminal statuses allow nothing.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		switch target {
		case StatusProcessing, StatusCompleted, StatusExpired, StatusCancelled:
			return true
		}
	case StatusProcessing:
		switch target {
		case StatusCompleted, StatusCancelled, StatusFailed:
			return true
		}
	}
	return false
}

package errors

import (
	"errors"
	"fmt"
)

// Kind is the machine-checkable class of an error returned to API callers.
type Kind string

const (
	KindValidation   Kind = "validation_error"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindExpired      Kind = "expired"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal_error"
)

// Error carries a kind and a human readable message. A sentinel with an empty
// Message matches every error of the same kind.
type Error struct {
	Kind    Kind
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrExpired      = &Error{Kind: KindExpired}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

var (
	ErrTransactionNotFound = &Error{Kind: KindNotFound, Message: "Transaction non trouvée"}
	ErrCannotConfirm       = &Error{Kind: KindInvalidState, Message: "Cette transaction ne peut pas être confirmée"}
	ErrCannotValidate      = &Error{Kind: KindInvalidState, Message: "Cette transaction ne peut pas être validée"}
	ErrCannotCancel        = &Error{Kind: KindInvalidState, Message: "Cette transaction ne peut pas être annulée"}
	ErrCompletedNoCancel   = &Error{Kind: KindInvalidState, Message: "Une transaction complétée ne peut pas être annulée"}
	ErrCannotReject        = &Error{Kind: KindInvalidState, Message: "Cette transaction ne peut pas être rejetée"}
	ErrTransactionExpired  = &Error{Kind: KindExpired, Message: "Transaction expirée"}
	ErrNotAdmin            = &Error{Kind: KindUnauthorized, Message: "Accès administrateur requis"}
	ErrInvalidCredentials  = &Error{Kind: KindUnauthorized, Message: "Identifiants invalides"}
	ErrInvalidToken        = &Error{Kind: KindUnauthorized, Message: "Jeton invalide ou révoqué"}
)

// Storage level errors. These never reach API callers unwrapped.
var (
	ErrNilTransaction       = errors.New("transaction is nil")
	ErrStatusConflict       = errors.New("transaction status changed concurrently")
	ErrDuplicateTransaction = errors.New("transaction already exists")
	ErrAdminNotFound        = errors.New("admin not found")
	ErrAdminAlreadyExists   = errors.New("admin already exists")
	ErrNilAdmin             = errors.New("admin is nil")
)

// Validation builds a field specific validation error.
func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the API kind of err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

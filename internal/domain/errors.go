package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSubmission   = errors.New("invalid submission")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrTransportFailure    = errors.New("transport failure")
	ErrStaleProcessing     = errors.New("stale processing")

	ErrMessageNotFound  = errors.New("message not found")
	ErrNotCancellable   = errors.New("message is not cancellable")
	ErrNotDeletable     = errors.New("message is not deletable")
	ErrAccountNotFound  = errors.New("account not found")
	ErrGatewayNotFound  = errors.New("gateway not found")
	ErrLedgerContention = errors.New("ledger contention")
	ErrStatusConflict   = errors.New("status changed concurrently")
)

const (
	CodeInvalidSubmission   = "INVALID_SUBMISSION"
	CodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	CodeTransportFailure    = "TRANSPORT_FAILURE"
	CodeStaleProcessing     = "STALE_PROCESSING"
	CodeNotCancellable      = "NOT_CANCELLABLE"
	CodeNotDeletable        = "NOT_DELETABLE"
	CodeNotFound            = "NOT_FOUND"
	CodeLedgerContention    = "LEDGER_CONTENTION"
)

// DispatchError carries a stable code next to the wrapped sentinel so API
// callers can branch on it.
type DispatchError struct {
	Code    string
	Message string
	Err     error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

func NewDispatchError(code, message string, err error) *DispatchError {
	return &DispatchError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func InvalidSubmission(format string, args ...any) *DispatchError {
	return NewDispatchError(CodeInvalidSubmission, fmt.Sprintf(format, args...), ErrInvalidSubmission)
}

func InsufficientCredits(available, required int64) *DispatchError {
	return NewDispatchError(
		CodeInsufficientCredits,
		fmt.Sprintf("available %d, required %d", available, required),
		ErrInsufficientCredits,
	)
}

// ErrorCode returns the code of the first DispatchError in err's chain.
func ErrorCode(err error) string {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

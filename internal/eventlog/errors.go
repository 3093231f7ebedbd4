package eventlog

import (
	"errors"
	"fmt"

	"github.com/roach88/blocklog/internal/ir"
)

// ErrorCode categorizes event log failures.
type ErrorCode string

const (
	// ErrCodeInsufficientFunds indicates the funder cannot cover the allocation fee.
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeAlreadyInitialized indicates the period's account already exists.
	ErrCodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"

	// ErrCodeNotInitialized indicates an append targeted a missing account.
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"

	// ErrCodeAddressMismatch indicates the target is not the period's derived address.
	ErrCodeAddressMismatch ErrorCode = "ADDRESS_MISMATCH"

	// ErrCodeAddressSpaceExhausted indicates no bump yields a valid address.
	ErrCodeAddressSpaceExhausted ErrorCode = "ADDRESS_SPACE_EXHAUSTED"

	// ErrCodeNotFound indicates a read found no account for the period.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Error is a typed failure of an event log operation.
//
// Failures are side-effect free: when an operation returns an *Error,
// nothing was written.
type Error struct {
	Code    ErrorCode
	Message string
	Period  uint64
	Address ir.Pubkey

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.Address.IsZero() {
		return fmt.Sprintf("%s: %s (period=%d, address=%s)", e.Code, e.Message, e.Period, e.Address)
	}
	return fmt.Sprintf("%s: %s (period=%d)", e.Code, e.Message, e.Period)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func newError(code ErrorCode, period uint64, address ir.Pubkey, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Period:  period,
		Address: address,
		Err:     cause,
	}
}

package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a transaction rejected before any instruction ran.
//
// Rejected transactions consume no sequence number and record no receipt.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// TxID identifies the rejected transaction, if known.
	TxID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidSignature indicates the signature does not verify
	// against the signer over the transaction message.
	ErrCodeInvalidSignature RuntimeErrorCode = "INVALID_SIGNATURE"

	// ErrCodeDuplicateTransaction indicates a receipt already exists for the ID.
	ErrCodeDuplicateTransaction RuntimeErrorCode = "DUPLICATE_TRANSACTION"

	// ErrCodeEngineStopped indicates the engine no longer accepts transactions.
	ErrCodeEngineStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeUnknownInstruction indicates an instruction kind the engine cannot run.
	ErrCodeUnknownInstruction RuntimeErrorCode = "UNKNOWN_INSTRUCTION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.TxID != "" {
		return fmt.Sprintf("%s: %s (tx=%s)", e.Code, e.Message, e.TxID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of the first *RuntimeError in err's chain, or "".
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsStopped reports whether err means the engine was stopped.
// Uses errors.As to handle wrapped errors.
func IsStopped(err error) bool {
	return CodeOf(err) == ErrCodeEngineStopped
}

func newRuntimeError(code RuntimeErrorCode, txID, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		TxID:    txID,
	}
}

package store

import "errors"

var (
	// ErrAccountExists is returned when creating an account whose address or
	// period is already taken. Nothing is written.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound is returned when no account lives at an address.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when a debit exceeds the identity's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBalanceOverflow is returned when a credit would exceed the storable range.
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrDuplicateTransaction is returned when a receipt for the same
	// transaction ID was already recorded.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrTransactionNotFound is returned when no receipt exists for an ID.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrConcurrentAppend is returned when an account's event counter moved
	// between the header read and the counter update.
	ErrConcurrentAppend = errors.New("concurrent append detected")
)

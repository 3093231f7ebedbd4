// Package eventlog manages the lifecycle of per-period event storage accounts.
//
// A Manager owns three operations:
//
//   - Initialize creates the account for a period exactly once and funds it.
//   - Append adds one payload and its signer to an existing account.
//   - Read returns the account for a period.
//
// Every mutating operation names the address the caller believes belongs to
// the period. The Manager never trusts that address: it re-derives it with an
// address.Deriver and rejects the operation with ADDRESS_MISMATCH when the two
// differ. Each operation runs as one store transaction, so a rejected
// operation leaves no trace.
//
// Errors are *Error values carrying a Code; use CodeOf or IsCode to inspect
// them through wrapping.
package eventlog

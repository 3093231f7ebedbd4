// Package engine is the single-writer transaction processor in front of the
// event log.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Every state change goes through one goroutine running Engine.Run. Callers
// Submit signed transactions from any goroutine and block until their
// receipt is ready. The loop gives concurrent appenders to one period a
// strict total order and keeps the receipt log reproducible.
//
// Transaction Flow:
// 1. Submit enqueues the transaction and waits.
// 2. Run dequeues transactions one at a time.
// 3. The instruction kind, signature and ID are checked. A failure here
// rejects the transaction with a RuntimeError and records nothing.
// 4. The transaction takes the next Clock sequence number and its
// instruction runs through the eventlog Manager in one store transaction.
// 5. A receipt (ok or failed) is written and returned to the submitter.
//
// Failed instructions are terminal for that attempt. The engine never
// retries; retry policy belongs to the caller.
//
// Reads do not mutate state and bypass the loop.
package engine

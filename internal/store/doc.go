// Package store provides SQLite-backed durable storage for blocklog accounts.
//
// The store holds four tables:
//   - accounts: one row per period storage account (address, period, bump, lamports)
//   - events: append-only payload rows, keyed by (address, idx)
//   - balances: transferable lamport balances of signer identities
//   - transactions: receipts of every processed transaction
//
// # Critical Patterns
//
// Create-once: accounts are inserted with ON CONFLICT DO NOTHING and the
// result is checked through RowsAffected. There is never a separate
// "exists?" query ahead of the insert.
//
// Atomic append: the account header is read, validated and advanced in the
// same SQL transaction as the event insert. A rejected append rolls back and
// leaves no row behind.
//
// Signer alignment: payload and signer share one events row, so the event and
// signer sequences of an account cannot diverge in length.
//
// Deterministic reads: events are always returned ORDER BY idx ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// uint64 values (periods) are stored bit-cast to int64 since SQLite integers
// are signed; they round-trip losslessly.
package store

// Package harness runs scripted scenarios against a real engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: append_and_read
//	description: "Appends land in order with their signers"
//	accounts:
//	  alice: 5000000
//	steps:
//	  - op: initialize
//	    signer: alice
//	    period: 7
//	  - op: append
//	    signer: alice
//	    period: 7
//	    payload: "hello"
//	    expect: { index: 0 }
//	  - op: append
//	    signer: alice
//	    period: 8
//	    target_period: 7
//	    expect: { error: ADDRESS_MISMATCH }
//	  - op: read
//	    period: 7
//	    expect:
//	      events: ["hello"]
//	      signers: [alice]
//	assertions:
//	  - type: event_count
//	    period: 7
//	    count: 1
//	  - type: audit_clean
//
// Operations are initialize, append and read. Initialize and append are
// signed by the named signer and go through the engine loop. An expected
// error is either an instruction code (ALREADY_INITIALIZED, NOT_INITIALIZED,
// ADDRESS_MISMATCH, INSUFFICIENT_FUNDS, NOT_FOUND) or an engine rejection
// (INVALID_SIGNATURE, DUPLICATE_TRANSACTION).
//
// # Assertion Types
//
//   - event_count: the period's account holds exactly count events
//   - balance: the named account holds exactly lamports
//   - receipt_count: exactly count receipts, optionally of one status
//   - audit_clean: engine.Audit reports no findings
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store, keypairs derived from the
// signer names and sequential transaction IDs. Traces name signers rather
// than addresses and are compared with golden files in testdata/golden.
package harness

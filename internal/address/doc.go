// Package address derives the storage account address of a period.
//
// A derived address is the SHA-256 of the seeds, a one-byte nonce ("bump"),
// the owning program ID and the marker "ProgramDerivedAddress". The result
// must NOT decode to an ed25519 curve point, so no private key can ever sign
// for it. Derive scans bumps from 255 down to 0 and returns the first valid
// candidate; that (address, bump) pair is canonical.
//
// Seeds for a period are the namespace tag followed by the 8-byte
// little-endian encoding of the period:
//
//	seeds = ["event_storage", le64(period)]
//
// Everything here is a pure function of its inputs; a Deriver holds no
// mutable state and is safe for concurrent use.
package address

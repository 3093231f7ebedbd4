// Package ir provides the shared domain types for blocklog.
//
// This package contains type definitions, canonical encodings and hashing only.
// All other internal packages import ir; ir imports nothing internal. This keeps
// ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Periods are uint64 and are encoded little-endian wherever they feed a hash
//   - Pubkeys are 32 raw bytes, rendered as base58 in JSON and text output
//   - All JSON tags use snake_case
//   - Ordering comes from logical sequence numbers (seq), never wall-clock time
package ir

package eventlog

import (
	"fmt"
	"math/bits"
)

// AccountStorageOverhead is the per-account metadata size charged on top of
// the account's data space.
const AccountStorageOverhead = 128

// DefaultAccountSpace is the allocation reserved for an event storage account.
const DefaultAccountSpace = 25

// Rent prices the allocation of a new storage account.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
	AccountSpace        uint64
}

// DefaultRent returns the host ledger's standard rent parameters.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionYears:      2,
		AccountSpace:        DefaultAccountSpace,
	}
}

// Fee returns the lamports a funder pays to allocate one account.
func (r Rent) Fee() (uint64, error) {
	size := AccountStorageOverhead + r.AccountSpace
	if size < r.AccountSpace {
		return 0, fmt.Errorf("rent: account space %d overflows", r.AccountSpace)
	}
	hi, perYear := bits.Mul64(size, r.LamportsPerByteYear)
	if hi != 0 {
		return 0, fmt.Errorf("rent: fee overflows uint64")
	}
	hi, fee := bits.Mul64(perYear, r.ExemptionYears)
	if hi != 0 {
		return 0, fmt.Errorf("rent: fee overflows uint64")
	}
	return fee, nil
}

package address

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/roach88/blocklog/internal/ir"
)

const (
	// MaxSeeds is the maximum number of seeds, including the bump.
	MaxSeeds = 16

	// MaxSeedLength is the maximum length in bytes of one seed.
	MaxSeedLength = 32

	// DefaultNamespace is the seed tag that scopes period storage accounts.
	DefaultNamespace = "event_storage"

	pdaMarker = "ProgramDerivedAddress"
)

// DefaultProgramID owns every event storage account unless configured otherwise.
var DefaultProgramID = ir.MustParsePubkey("B5XNLjvDHkacwCASVVpo1EGK9L4AA7c7WdmX5qFrKLGH")

var (
	// ErrAddressSpaceExhausted is returned when no bump in 0..255 yields an
	// off-curve address. It is fatal for the given seeds.
	ErrAddressSpaceExhausted = errors.New("unable to find a viable derived address bump")

	// ErrInvalidSeeds is returned when seeds and bump hash to an on-curve point.
	ErrInvalidSeeds = errors.New("provided seeds do not result in a valid address")

	// ErrMaxSeedLength is returned when a seed or the seed count exceeds the limits.
	ErrMaxSeedLength = errors.New("length of the seed is too long for address generation")
)

// Deriver derives period storage addresses for one program and namespace.
type Deriver struct {
	ProgramID ir.Pubkey
	Namespace string
}

// NewDeriver returns a Deriver using the default program ID and namespace.
func NewDeriver() Deriver {
	return Deriver{ProgramID: DefaultProgramID, Namespace: DefaultNamespace}
}

// PeriodSeed returns the 8-byte little-endian encoding of period.
func PeriodSeed(period uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, period)
}

// Seeds returns the seeds that locate the storage account of period.
func (d Deriver) Seeds(period uint64) [][]byte {
	return [][]byte{[]byte(d.namespace()), PeriodSeed(period)}
}

// Derive returns the canonical address and bump for period.
func (d Deriver) Derive(period uint64) (ir.Pubkey, uint8, error) {
	return FindProgramAddress(d.Seeds(period), d.ProgramID)
}

// Address recomputes the address of period for a known bump.
// Used to validate an existing account without re-running the bump search.
func (d Deriver) Address(period uint64, bump uint8) (ir.Pubkey, error) {
	return CreateProgramAddress(append(d.Seeds(period), []byte{bump}), d.ProgramID)
}

// Verify reports whether target is the address of period under bump.
func (d Deriver) Verify(period uint64, bump uint8, target ir.Pubkey) (bool, error) {
	addr, err := d.Address(period, bump)
	if err != nil {
		if errors.Is(err, ErrInvalidSeeds) {
			return false, nil
		}
		return false, err
	}
	return addr == target, nil
}

func (d Deriver) namespace() string {
	if d.Namespace == "" {
		return DefaultNamespace
	}
	return d.Namespace
}

// FindProgramAddress scans bumps from 255 down to 0 and returns the first
// off-curve address for seeds.
func FindProgramAddress(seeds [][]byte, programID ir.Pubkey) (ir.Pubkey, uint8, error) {
	bumpSeed := []byte{0}
	withBump := append(append(make([][]byte, 0, len(seeds)+1), seeds...), bumpSeed)

	for bump := 255; bump >= 0; bump-- {
		bumpSeed[0] = uint8(bump)
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return ir.Pubkey{}, 0, err
		}
	}
	return ir.Pubkey{}, 0, ErrAddressSpaceExhausted
}

// CreateProgramAddress hashes seeds (which must already include the bump, if
// any) with programID. It fails with ErrInvalidSeeds when the hash is a valid
// curve point.
func CreateProgramAddress(seeds [][]byte, programID ir.Pubkey) (ir.Pubkey, error) {
	if len(seeds) > MaxSeeds {
		return ir.Pubkey{}, fmt.Errorf("%w: %d seeds exceeds %d", ErrMaxSeedLength, len(seeds), MaxSeeds)
	}

	h := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return ir.Pubkey{}, fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr ir.Pubkey
	copy(addr[:], h.Sum(nil))
	if IsOnCurve(addr) {
		return ir.Pubkey{}, ErrInvalidSeeds
	}
	return addr, nil
}

// IsOnCurve reports whether pk decodes to a point on the ed25519 curve.
// Signer keys are on the curve; derived addresses never are.
func IsOnCurve(pk ir.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

package testutil

import (
	"fmt"

	"github.com/roach88/blocklog/internal/keys"
)

// Master is the key material all named test keypairs derive from.
var Master = []byte("blocklog-test-master")

// NamedKeypair returns the deterministic keypair for name under Master.
// The same name yields the same keypair in every test and scenario run.
func NamedKeypair(name string) (*keys.Keypair, error) {
	kp, err := keys.Derive(Master, name)
	if err != nil {
		return nil, fmt.Errorf("named keypair %q: %w", name, err)
	}
	return kp, nil
}

// MustNamedKeypair is like NamedKeypair but panics on error.
func MustNamedKeypair(name string) *keys.Keypair {
	kp, err := NamedKeypair(name)
	if err != nil {
		panic(err)
	}
	return kp
}

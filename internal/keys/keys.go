// Package keys manages ed25519 signing identities.
//
// Keypair files hold the 64-byte private key as a JSON array of numbers,
// the format used by common ledger wallet tooling.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"

	"github.com/roach88/blocklog/internal/ir"
)

// derivationSalt scopes HKDF-derived keys to this application.
var derivationSalt = []byte("blocklog-keys-v1")

// ErrInvalidKey is returned when key material has the wrong shape.
var ErrInvalidKey = errors.New("invalid key material")

// Keypair is an ed25519 signing identity.
type Keypair struct {
	priv ed25519.PrivateKey
}

// Generate creates a random keypair.
func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// FromSeed returns the keypair for a 32-byte seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidKey, ed25519.SeedSize, len(seed))
	}
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// FromPrivateKey returns the keypair for a 64-byte private key.
// The embedded public half must match the seed.
func FromPrivateKey(b []byte) (*Keypair, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, ed25519.PrivateKeySize, len(b))
	}
	kp, err := FromSeed(b[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(kp.priv[ed25519.SeedSize:], b[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKey)
	}
	return kp, nil
}

// Derive deterministically derives a named keypair from master key
// material using HKDF-SHA256. The same master and label always produce the
// same keypair.
func Derive(master []byte, label string) (*Keypair, error) {
	if label == "" {
		return nil, fmt.Errorf("derive key: label must not be empty")
	}
	if len(master) == 0 {
		return nil, fmt.Errorf("derive key: master must not be empty")
	}

	r := hkdf.New(sha256.New, master, derivationSalt, []byte(label))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("derive key: hkdf: %w", err)
	}
	return FromSeed(seed)
}

// Pubkey returns the public key.
func (k *Keypair) Pubkey() ir.Pubkey {
	var pk ir.Pubkey
	copy(pk[:], k.priv[ed25519.SeedSize:])
	return pk
}

// Sign signs msg.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// Seed returns a copy of the 32-byte seed.
func (k *Keypair) Seed() []byte {
	return bytes.Clone(k.priv.Seed())
}

// Bytes returns a copy of the 64-byte private key.
func (k *Keypair) Bytes() []byte {
	return bytes.Clone(k.priv)
}

// Load reads a keypair file.
func Load(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}

	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}

	b := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("load keypair %s: %w: byte %d out of range", path, ErrInvalidKey, i)
		}
		b[i] = byte(v)
	}

	kp, err := FromPrivateKey(b)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return kp, nil
}

// Save writes k to path with owner-only permissions.
func Save(path string, k *Keypair) error {
	raw := make([]int, len(k.priv))
	for i, b := range k.priv {
		raw[i] = int(b)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("save keypair: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save keypair: %w", err)
	}
	return nil
}

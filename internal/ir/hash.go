package ir

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Domain prefixes for hashed and signed content.
// Version suffix enables future algorithm migration.
const (
	DomainTransaction = "blocklog/transaction/v1"
	DomainAccount     = "account"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator - CRITICAL for security
	h.Write(data)
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// TransactionMessage returns the canonical JSON message a transaction's
// signer signs. The signature itself is excluded.
//
// Payload bytes are carried as standard base64 so arbitrary binary content
// survives NFC normalisation unchanged.
func TransactionMessage(tx Transaction) ([]byte, error) {
	obj := map[string]any{
		"version": MessageVersion,
		"id":      tx.ID,
		"signer":  tx.Signer.String(),
		"instruction": map[string]any{
			"kind":    string(tx.Instruction.Kind),
			"period":  tx.Instruction.Period,
			"payload": base64.StdEncoding.EncodeToString(tx.Instruction.Payload),
			"target":  tx.Instruction.Target.String(),
		},
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("TransactionMessage: failed to marshal: %w", err)
	}
	return canonical, nil
}

// TransactionDigest is the domain-separated SHA-256 of the transaction message.
// Signatures are computed over this digest.
func TransactionDigest(tx Transaction) ([32]byte, error) {
	msg, err := TransactionMessage(tx)
	if err != nil {
		return [32]byte{}, err
	}
	return hashWithDomain(DomainTransaction, msg), nil
}

// AccountDiscriminator returns the 8-byte tag that prefixes an encoded
// account of the given type: sha256("account:" + name)[:8].
func AccountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(DomainAccount + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

package engine

import (
	"crypto/ed25519"
	"fmt"

	"github.com/roach88/blocklog/internal/ir"
	"github.com/roach88/blocklog/internal/keys"
)

// NewTransaction builds a transaction carrying instr and signs it with signer.
func NewTransaction(id string, instr ir.Instruction, signer *keys.Keypair) (ir.Transaction, error) {
	tx := ir.Transaction{
		ID:          id,
		Instruction: instr,
		Signer:      signer.Pubkey(),
	}
	if err := Sign(&tx, signer); err != nil {
		return ir.Transaction{}, err
	}
	return tx, nil
}

// Sign sets tx.Signature. The keypair must belong to tx.Signer.
func Sign(tx *ir.Transaction, signer *keys.Keypair) error {
	if signer.Pubkey() != tx.Signer {
		return fmt.Errorf("sign: keypair %s is not the transaction signer %s", signer.Pubkey(), tx.Signer)
	}
	digest, err := ir.TransactionDigest(*tx)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	tx.Signature = signer.Sign(digest[:])
	return nil
}

// VerifySignature checks tx.Signature against tx.Signer.
func VerifySignature(tx ir.Transaction) error {
	if len(tx.Signature) != ed25519.SignatureSize {
		return newRuntimeError(ErrCodeInvalidSignature, tx.ID,
			"signature must be %d bytes, got %d", ed25519.SignatureSize, len(tx.Signature))
	}
	digest, err := ir.TransactionDigest(tx)
	if err != nil {
		return newRuntimeError(ErrCodeInvalidSignature, tx.ID, "message: %v", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(tx.Signer[:]), digest[:], tx.Signature) {
		return newRuntimeError(ErrCodeInvalidSignature, tx.ID, "signature does not verify for %s", tx.Signer)
	}
	return nil
}

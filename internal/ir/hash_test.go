package ir

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction() Transaction {
	return Transaction{
		ID: "0190a1b2-0000-7000-8000-000000000001",
		Instruction: Instruction{
			Kind:    InstructionAppend,
			Period:  234,
			Payload: []byte{0x00, 0xff},
			Target:  Pubkey{7},
		},
		Signer: Pubkey{9},
	}
}

func TestTransactionMessageIsCanonical(t *testing.T) {
	tx := testTransaction()

	msg, err := TransactionMessage(tx)
	require.NoError(t, err)

	expected := `{"id":"0190a1b2-0000-7000-8000-000000000001",` +
		`"instruction":{"kind":"append","payload":"AP8=","period":234,"target":"` + tx.Instruction.Target.String() + `"},` +
		`"signer":"` + tx.Signer.String() + `","version":"1"}`
	assert.Equal(t, expected, string(msg))
}

func TestTransactionMessageExcludesSignature(t *testing.T) {
	tx := testTransaction()
	a, err := TransactionDigest(tx)
	require.NoError(t, err)

	tx.Signature = []byte("anything")
	b, err := TransactionDigest(tx)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestTransactionDigestChangesWithContent(t *testing.T) {
	base := testTransaction()
	baseDigest, err := TransactionDigest(base)
	require.NoError(t, err)

	mutations := map[string]func(*Transaction){
		"id":      func(tx *Transaction) { tx.ID = "other" },
		"period":  func(tx *Transaction) { tx.Instruction.Period = 235 },
		"payload": func(tx *Transaction) { tx.Instruction.Payload = nil },
		"target":  func(tx *Transaction) { tx.Instruction.Target = Pubkey{8} },
		"signer":  func(tx *Transaction) { tx.Signer = Pubkey{10} },
		"kind":    func(tx *Transaction) { tx.Instruction.Kind = InstructionInitialize },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tx := testTransaction()
			mutate(&tx)
			digest, err := TransactionDigest(tx)
			require.NoError(t, err)
			assert.NotEqual(t, baseDigest, digest)
		})
	}
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte("payload")
	plain := sha256.Sum256(data)
	separated := hashWithDomain(DomainTransaction, data)
	assert.NotEqual(t, plain, separated)
	assert.NotEqual(t, hashWithDomain("a", []byte("bc")), hashWithDomain("ab", []byte("c")))
}

func TestAccountDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("account:EventStorage"))
	assert.Equal(t, sum[:8], EventStorageDiscriminator[:])
}

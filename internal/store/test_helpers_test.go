package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/blocklog/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testKey returns a distinct pubkey whose first byte is b.
func testKey(b byte) ir.Pubkey {
	var pk ir.Pubkey
	pk[0] = b
	pk[31] = 0xee
	return pk
}

// createTestAccount allocates an unfunded account for period at testKey(addr).
func createTestAccount(t *testing.T, s *Store, addr byte, period uint64) ir.Pubkey {
	t.Helper()
	address := testKey(addr)
	err := s.CreateEventStorage(context.Background(), CreateAccountParams{
		Address: address,
		Owner:   testKey(0xff),
		Period:  period,
		Bump:    254,
		Funder:  testKey(0xf0),
	})
	if err != nil {
		t.Fatalf("CreateEventStorage() failed: %v", err)
	}
	return address
}

func createTestReceipt(id string, seq int64) ir.Receipt {
	return ir.Receipt{
		TxID:   id,
		Seq:    seq,
		Kind:   ir.InstructionAppend,
		Period: 7,
		Signer: testKey(1),
		Target: testKey(2),
		Status: ir.StatusOK,
		Logs:   []string{"appended event 0"},
	}
}

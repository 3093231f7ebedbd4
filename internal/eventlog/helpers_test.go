package eventlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blocklog/internal/ir"
	"github.com/roach88/blocklog/internal/store"
)

var (
	funder = testKey(0xf1)
	alice  = testKey(0xa1)
	bob    = testKey(0xb2)
)

func testKey(b byte) ir.Pubkey {
	var pk ir.Pubkey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

// newTestManager returns a Manager over a temp-dir store with funder
// holding enough lamports for ten accounts.
func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	m := NewManager(s, opts...)
	fee, err := m.Fee()
	require.NoError(t, err)
	_, err = m.Airdrop(context.Background(), funder, 10*fee)
	require.NoError(t, err)
	return m
}

func mustInitialize(t *testing.T, m *Manager, period uint64) InitializeResult {
	t.Helper()
	res, err := m.Initialize(context.Background(), InitializeRequest{Period: period, Funder: funder})
	require.NoError(t, err)
	return res
}

package store

import (
	"context"
	"fmt"

	"github.com/roach88/blocklog/internal/ir"
)

// AccountState summarizes one account for integrity auditing.
type AccountState struct {
	Header AccountHeader

	// RowCount is the number of event rows stored for the account.
	RowCount uint64

	// MaxIndex is the highest stored event index, or -1 if none.
	MaxIndex int64
}

// Consistent reports whether the event rows are a dense 0..n-1 sequence
// matching the account's counter.
func (a AccountState) Consistent() bool {
	return a.RowCount == a.Header.EventCount && a.MaxIndex+1 == int64(a.RowCount)
}

// ListAccountStates returns every account with its event row statistics,
// ordered by period ASC.
func (s *Store) ListAccountStates(ctx context.Context) ([]AccountState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.address, a.owner, a.period, a.bump, a.lamports, a.event_count,
		       COUNT(e.idx), COALESCE(MAX(e.idx), -1)
		FROM accounts a
		LEFT JOIN events e ON e.address = a.address
		GROUP BY a.address
		ORDER BY a.period ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list account states: %w", err)
	}
	defer rows.Close()

	states := []AccountState{}
	for rows.Next() {
		var addressRaw, ownerRaw []byte
		var period, bump, lamports, eventCount, rowCount, maxIndex int64
		if err := rows.Scan(&addressRaw, &ownerRaw, &period, &bump, &lamports, &eventCount, &rowCount, &maxIndex); err != nil {
			return nil, fmt.Errorf("list account states: scan: %w", err)
		}

		var st AccountState
		if st.Header.Address, err = ir.PubkeyFromBytes(addressRaw); err != nil {
			return nil, fmt.Errorf("list account states: address: %w", err)
		}
		if st.Header.Owner, err = ir.PubkeyFromBytes(ownerRaw); err != nil {
			return nil, fmt.Errorf("list account states: owner: %w", err)
		}
		st.Header.Period = uint64(period)
		st.Header.Bump = uint8(bump)
		st.Header.Lamports = uint64(lamports)
		st.Header.EventCount = uint64(eventCount)
		st.RowCount = uint64(rowCount)
		st.MaxIndex = maxIndex
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list account states: iterate: %w", err)
	}
	return states, nil
}

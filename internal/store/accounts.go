package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/blocklog/internal/ir"
)

// CreateAccountParams describes a new period storage account.
type CreateAccountParams struct {
	Address  ir.Pubkey
	Owner    ir.Pubkey
	Period   uint64
	Bump     uint8
	Funder   ir.Pubkey
	Lamports uint64 // moved from Funder's balance into the account
}

// AccountHeader is the fixed part of a storage account, without its events.
type AccountHeader struct {
	Address    ir.Pubkey
	Owner      ir.Pubkey
	Period     uint64
	Bump       uint8
	Lamports   uint64
	EventCount uint64
}

// CreateEventStorage allocates a storage account and funds it from
// p.Funder in a single transaction.
//
// The insert uses ON CONFLICT DO NOTHING; zero affected rows means the
// address (or period) is taken and ErrAccountExists is returned before any
// funds move. If the funder cannot cover p.Lamports the whole transaction
// rolls back with ErrInsufficientFunds.
func (s *Store) CreateEventStorage(ctx context.Context, p CreateAccountParams) error {
	if p.Lamports > math.MaxInt64 {
		return fmt.Errorf("create event storage: %w", ErrBalanceOverflow)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create event storage: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Step 1: claim the address atomically via the primary key
	result, err := tx.ExecContext(ctx, `
		INSERT INTO accounts
		(address, owner, period, bump, lamports, event_count)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT DO NOTHING
	`,
		p.Address[:],
		p.Owner[:],
		int64(p.Period),
		int64(p.Bump),
		int64(p.Lamports),
	)
	if err != nil {
		return fmt.Errorf("create event storage: insert account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create event storage: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAccountExists
	}

	// Step 2: debit the funder; the WHERE guard makes the debit conditional
	if p.Lamports > 0 {
		if err := debit(ctx, tx, p.Funder, p.Lamports); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create event storage: commit: %w", err)
	}
	return nil
}

// AppendEvent appends payload and signer to the account at address.
//
// check runs inside the transaction against the current header; a non-nil
// result aborts the append with that error and nothing is written. The new
// event's index is returned.
func (s *Store) AppendEvent(
	ctx context.Context,
	address ir.Pubkey,
	payload []byte,
	signer ir.Pubkey,
	check func(AccountHeader) error,
) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append event: begin tx: %w", err)
	}
	defer tx.Rollback()

	header, err := scanHeader(tx.QueryRowContext(ctx, `
		SELECT address, owner, period, bump, lamports, event_count
		FROM accounts
		WHERE address = ?
	`, address[:]))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("append event: read header: %w", err)
	}

	if check != nil {
		if err := check(header); err != nil {
			return 0, err
		}
	}

	// go-sqlite3 binds a nil slice as NULL; an empty payload is a zero-length blob.
	if payload == nil {
		payload = []byte{}
	}

	idx := header.EventCount
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (address, idx, payload, signer)
		VALUES (?, ?, ?, ?)
	`, address[:], int64(idx), payload, signer[:]); err != nil {
		return 0, fmt.Errorf("append event: insert: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts SET event_count = event_count + 1
		WHERE address = ? AND event_count = ?
	`, address[:], int64(idx))
	if err != nil {
		return 0, fmt.Errorf("append event: advance counter: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("append event: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, ErrConcurrentAppend
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append event: commit: %w", err)
	}
	return idx, nil
}

// ReadAccountHeader returns the header of the account at address.
// Returns ErrAccountNotFound if absent.
func (s *Store) ReadAccountHeader(ctx context.Context, address ir.Pubkey) (AccountHeader, error) {
	header, err := scanHeader(s.db.QueryRowContext(ctx, `
		SELECT address, owner, period, bump, lamports, event_count
		FROM accounts
		WHERE address = ?
	`, address[:]))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AccountHeader{}, ErrAccountNotFound
		}
		return AccountHeader{}, fmt.Errorf("read account header: %w", err)
	}
	return header, nil
}

// ReadEventStorage returns the full account at address with events in append order.
// Returns ErrAccountNotFound if absent.
//
// Events and Signers are non-nil even when empty.
func (s *Store) ReadEventStorage(ctx context.Context, address ir.Pubkey) (ir.EventStorage, error) {
	header, err := s.ReadAccountHeader(ctx, address)
	if err != nil {
		return ir.EventStorage{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload, signer
		FROM events
		WHERE address = ?
		ORDER BY idx ASC
	`, address[:])
	if err != nil {
		return ir.EventStorage{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	storage := ir.EventStorage{
		Address:  header.Address,
		Period:   header.Period,
		Bump:     header.Bump,
		Lamports: header.Lamports,
		Events:   make([][]byte, 0, header.EventCount),
		Signers:  make([]ir.Pubkey, 0, header.EventCount),
	}

	for rows.Next() {
		var payload, signerRaw []byte
		if err := rows.Scan(&payload, &signerRaw); err != nil {
			return ir.EventStorage{}, fmt.Errorf("scan event: %w", err)
		}
		signer, err := ir.PubkeyFromBytes(signerRaw)
		if err != nil {
			return ir.EventStorage{}, fmt.Errorf("scan event signer: %w", err)
		}
		if payload == nil {
			payload = []byte{}
		}
		storage.Events = append(storage.Events, payload)
		storage.Signers = append(storage.Signers, signer)
	}

	if err := rows.Err(); err != nil {
		return ir.EventStorage{}, fmt.Errorf("iterate events: %w", err)
	}

	return storage, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(row rowScanner) (AccountHeader, error) {
	var h AccountHeader
	var addressRaw, ownerRaw []byte
	var period, bump, lamports, eventCount int64

	if err := row.Scan(&addressRaw, &ownerRaw, &period, &bump, &lamports, &eventCount); err != nil {
		return AccountHeader{}, err
	}

	var err error
	if h.Address, err = ir.PubkeyFromBytes(addressRaw); err != nil {
		return AccountHeader{}, fmt.Errorf("scan address: %w", err)
	}
	if h.Owner, err = ir.PubkeyFromBytes(ownerRaw); err != nil {
		return AccountHeader{}, fmt.Errorf("scan owner: %w", err)
	}
	h.Period = uint64(period)
	h.Bump = uint8(bump)
	h.Lamports = uint64(lamports)
	h.EventCount = uint64(eventCount)
	return h, nil
}

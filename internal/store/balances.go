package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/roach88/blocklog/internal/ir"
)

// Credit adds lamports to identity's balance, creating the balance row if
// needed, and returns the new balance.
func (s *Store) Credit(ctx context.Context, identity ir.Pubkey, lamports uint64) (uint64, error) {
	if lamports > math.MaxInt64 {
		return 0, fmt.Errorf("credit: %w", ErrBalanceOverflow)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("credit: begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := balance(ctx, tx, identity)
	if err != nil {
		return 0, fmt.Errorf("credit: %w", err)
	}
	if current > math.MaxInt64-lamports {
		return 0, fmt.Errorf("credit: %w", ErrBalanceOverflow)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balances (identity, lamports)
		VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET lamports = lamports + excluded.lamports
	`, identity[:], int64(lamports))
	if err != nil {
		return 0, fmt.Errorf("credit: upsert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("credit: commit: %w", err)
	}
	return current + lamports, nil
}

// Balance returns identity's transferable balance; unknown identities hold 0.
func (s *Store) Balance(ctx context.Context, identity ir.Pubkey) (uint64, error) {
	b, err := balance(ctx, s.db, identity)
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return b, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func balance(ctx context.Context, q querier, identity ir.Pubkey) (uint64, error) {
	var lamports int64
	err := q.QueryRowContext(ctx, `
		SELECT lamports FROM balances WHERE identity = ?
	`, identity[:]).Scan(&lamports)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(lamports), nil
}

// debit subtracts lamports from identity's balance inside tx.
// The WHERE guard makes the check and the update one statement.
func debit(ctx context.Context, q querier, identity ir.Pubkey, lamports uint64) error {
	result, err := q.ExecContext(ctx, `
		UPDATE balances SET lamports = lamports - ?
		WHERE identity = ? AND lamports >= ?
	`, int64(lamports), identity[:], int64(lamports))
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/blocklog/internal/ir"
)

// WriteReceipt records the outcome of a processed transaction.
// Returns ErrDuplicateTransaction if a receipt with the same ID exists.
func (s *Store) WriteReceipt(ctx context.Context, r ir.Receipt) error {
	logs := r.Logs
	if logs == nil {
		logs = []string{}
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("write receipt: marshal logs: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, seq, kind, period, signer, target, status, error_code, message, logs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.TxID,
		r.Seq,
		string(r.Kind),
		int64(r.Period),
		r.Signer[:],
		r.Target[:],
		string(r.Status),
		r.ErrorCode,
		r.Message,
		string(logsJSON),
	)
	if err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write receipt: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}

// HasTransaction reports whether a receipt exists for id.
func (s *Store) HasTransaction(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM transactions WHERE id = ?
	`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has transaction: %w", err)
	}
	return true, nil
}

// ReadReceipt returns the receipt for id.
// Returns ErrTransactionNotFound if absent.
func (s *Store) ReadReceipt(ctx context.Context, id string) (ir.Receipt, error) {
	r, err := scanReceipt(s.db.QueryRowContext(ctx, `
		SELECT id, seq, kind, period, signer, target, status, error_code, message, logs
		FROM transactions
		WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Receipt{}, ErrTransactionNotFound
		}
		return ir.Receipt{}, fmt.Errorf("read receipt: %w", err)
	}
	return r, nil
}

// ListReceipts returns up to limit receipts ordered by seq ASC.
// A limit of zero or less returns every receipt.
func (s *Store) ListReceipts(ctx context.Context, limit int) ([]ir.Receipt, error) {
	query := `
		SELECT id, seq, kind, period, signer, target, status, error_code, message, logs
		FROM transactions
		ORDER BY seq ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	receipts := []ir.Receipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("list receipts: %w", err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list receipts: iterate: %w", err)
	}
	return receipts, nil
}

// MaxSeq returns the highest recorded sequence number, or 0 if none.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transactions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func scanReceipt(row rowScanner) (ir.Receipt, error) {
	var r ir.Receipt
	var kind, status, logsJSON string
	var period int64
	var signerRaw, targetRaw []byte

	if err := row.Scan(
		&r.TxID,
		&r.Seq,
		&kind,
		&period,
		&signerRaw,
		&targetRaw,
		&status,
		&r.ErrorCode,
		&r.Message,
		&logsJSON,
	); err != nil {
		return ir.Receipt{}, err
	}

	var err error
	if r.Signer, err = ir.PubkeyFromBytes(signerRaw); err != nil {
		return ir.Receipt{}, fmt.Errorf("scan signer: %w", err)
	}
	if r.Target, err = ir.PubkeyFromBytes(targetRaw); err != nil {
		return ir.Receipt{}, fmt.Errorf("scan target: %w", err)
	}
	if err := json.Unmarshal([]byte(logsJSON), &r.Logs); err != nil {
		return ir.Receipt{}, fmt.Errorf("scan logs: %w", err)
	}
	if r.Logs == nil {
		r.Logs = []string{}
	}

	r.Kind = ir.InstructionKind(kind)
	r.Status = ir.ReceiptStatus(status)
	r.Period = uint64(period)
	return r, nil
}

package eventlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/blocklog/internal/address"
	"github.com/roach88/blocklog/internal/ir"
	"github.com/roach88/blocklog/internal/store"
)

// Manager runs the event storage lifecycle over an account store.
type Manager struct {
	store   *store.Store
	deriver address.Deriver
	rent    Rent
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithDeriver sets the address deriver. Defaults to address.NewDeriver().
func WithDeriver(d address.Deriver) Option {
	return func(m *Manager) { m.deriver = d }
}

// WithRent sets the allocation pricing. Defaults to DefaultRent().
func WithRent(r Rent) Option {
	return func(m *Manager) { m.rent = r }
}

// WithLogger sets the logger. Defaults to a logger that discards output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager over s.
func NewManager(s *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   s,
		deriver: address.NewDeriver(),
		rent:    DefaultRent(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Deriver returns the deriver used to locate period accounts.
func (m *Manager) Deriver() address.Deriver {
	return m.deriver
}

// Fee returns the allocation fee charged by Initialize.
func (m *Manager) Fee() (uint64, error) {
	return m.rent.Fee()
}

// InitializeRequest asks for the creation of a period's storage account.
type InitializeRequest struct {
	Period uint64
	Funder ir.Pubkey

	// Target is the address the caller expects. Zero means "derive it".
	Target ir.Pubkey
}

// InitializeResult describes a newly created account.
type InitializeResult struct {
	Address ir.Pubkey
	Bump    uint8
	Fee     uint64
}

// Initialize creates the storage account for req.Period, debiting the fee
// from req.Funder.
//
// Fails with ALREADY_INITIALIZED if the account exists (no funds move),
// INSUFFICIENT_FUNDS if the funder cannot pay (nothing is created), and
// ADDRESS_MISMATCH if a non-zero Target differs from the derived address.
func (m *Manager) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	addr, bump, err := m.derive(req.Period)
	if err != nil {
		return InitializeResult{}, err
	}
	if !req.Target.IsZero() && req.Target != addr {
		return InitializeResult{}, newError(ErrCodeAddressMismatch, req.Period, req.Target, nil,
			"target is not the derived address %s", addr)
	}

	fee, err := m.rent.Fee()
	if err != nil {
		return InitializeResult{}, fmt.Errorf("initialize: %w", err)
	}

	err = m.store.CreateEventStorage(ctx, store.CreateAccountParams{
		Address:  addr,
		Owner:    m.deriver.ProgramID,
		Period:   req.Period,
		Bump:     bump,
		Funder:   req.Funder,
		Lamports: fee,
	})
	switch {
	case errors.Is(err, store.ErrAccountExists):
		return InitializeResult{}, newError(ErrCodeAlreadyInitialized, req.Period, addr, err,
			"event storage already initialized")
	case errors.Is(err, store.ErrInsufficientFunds):
		return InitializeResult{}, newError(ErrCodeInsufficientFunds, req.Period, addr, err,
			"funder %s cannot cover allocation fee of %d lamports", req.Funder, fee)
	case err != nil:
		return InitializeResult{}, fmt.Errorf("initialize: %w", err)
	}

	m.logger.Info("event storage initialized",
		"period", req.Period,
		"address", addr.String(),
		"bump", bump,
		"fee", fee,
		"funder", req.Funder.String(),
	)

	return InitializeResult{Address: addr, Bump: bump, Fee: fee}, nil
}

// AppendRequest asks for one payload to be appended to a period's log.
type AppendRequest struct {
	Period  uint64
	Payload []byte
	Signer  ir.Pubkey

	// Target is the account to mutate. Zero means "derive it".
	Target ir.Pubkey
}

// AppendResult locates an appended event.
type AppendResult struct {
	Address ir.Pubkey
	Index   uint64
}

// Append records req.Payload and req.Signer as the next event of the
// account at req.Target.
//
// The account is loaded first (missing: NOT_INITIALIZED), then its address
// is recomputed from req.Period and the stored bump (different: ADDRESS_MISMATCH).
// Payload bytes are stored verbatim; empty payloads are valid.
func (m *Manager) Append(ctx context.Context, req AppendRequest) (AppendResult, error) {
	target := req.Target
	if target.IsZero() {
		addr, _, err := m.derive(req.Period)
		if err != nil {
			return AppendResult{}, err
		}
		target = addr
	}

	verify := func(h store.AccountHeader) error {
		ok, err := m.deriver.Verify(req.Period, h.Bump, target)
		if err != nil {
			return newError(ErrCodeAddressMismatch, req.Period, target, err,
				"derivation constraint violated")
		}
		if !ok || h.Period != req.Period {
			return newError(ErrCodeAddressMismatch, req.Period, target, nil,
				"target belongs to period %d", h.Period)
		}
		return nil
	}

	idx, err := m.store.AppendEvent(ctx, target, req.Payload, req.Signer, verify)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return AppendResult{}, newError(ErrCodeNotInitialized, req.Period, target, err,
				"no event storage at target")
		}
		var e *Error
		if errors.As(err, &e) {
			return AppendResult{}, e
		}
		return AppendResult{}, fmt.Errorf("append: %w", err)
	}

	m.logger.Debug("event appended",
		"period", req.Period,
		"address", target.String(),
		"index", idx,
		"size", len(req.Payload),
		"signer", req.Signer.String(),
	)

	return AppendResult{Address: target, Index: idx}, nil
}

// Read returns the storage account of period.
// Fails with NOT_FOUND if it was never initialized.
func (m *Manager) Read(ctx context.Context, period uint64) (ir.EventStorage, error) {
	addr, _, err := m.derive(period)
	if err != nil {
		return ir.EventStorage{}, err
	}

	storage, err := m.store.ReadEventStorage(ctx, addr)
	if errors.Is(err, store.ErrAccountNotFound) {
		return ir.EventStorage{}, newError(ErrCodeNotFound, period, addr, err,
			"no event storage for period")
	}
	if err != nil {
		return ir.EventStorage{}, fmt.Errorf("read: %w", err)
	}
	return storage, nil
}

// Airdrop credits lamports to identity and returns the new balance.
func (m *Manager) Airdrop(ctx context.Context, identity ir.Pubkey, lamports uint64) (uint64, error) {
	balance, err := m.store.Credit(ctx, identity, lamports)
	if err != nil {
		return 0, fmt.Errorf("airdrop: %w", err)
	}
	m.logger.Info("airdrop", "to", identity.String(), "lamports", lamports, "balance", balance)
	return balance, nil
}

// Balance returns identity's transferable balance.
func (m *Manager) Balance(ctx context.Context, identity ir.Pubkey) (uint64, error) {
	return m.store.Balance(ctx, identity)
}

func (m *Manager) derive(period uint64) (ir.Pubkey, uint8, error) {
	addr, bump, err := m.deriver.Derive(period)
	if errors.Is(err, address.ErrAddressSpaceExhausted) {
		return ir.Pubkey{}, 0, newError(ErrCodeAddressSpaceExhausted, period, ir.Pubkey{}, err,
			"no bump yields a valid address")
	}
	if err != nil {
		return ir.Pubkey{}, 0, fmt.Errorf("derive period %d: %w", period, err)
	}
	return addr, bump, nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/blocklog/internal/eventlog"
	"github.com/roach88/blocklog/internal/ir"
	"github.com/roach88/blocklog/internal/store"
)

// Engine is the single-writer transaction loop.
//
// Thread-safety model:
//   - Submit(), NewTxID(), Read(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	store   *store.Store
	manager *eventlog.Manager
	clock   *Clock
	queue   *requestQueue
	ids     IDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the sequence clock. Defaults to NewClock().
// Use Resume to continue after receipts already in the store.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the transaction ID generator.
// Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// New creates an Engine that runs instructions through m and records
// receipts in s. m must be backed by s.
func New(s *store.Store, m *eventlog.Manager, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		manager: m,
		clock:   NewClock(),
		queue:   newRequestQueue(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resume moves the clock past the highest sequence number in the store.
// Call before Run when reopening an existing database.
func (e *Engine) Resume(ctx context.Context) error {
	seq, err := e.store.MaxSeq(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if seq > e.clock.Current() {
		e.clock = NewClockAt(seq)
	}
	return nil
}

// Clock returns the engine's sequence clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Manager returns the event log manager.
func (e *Engine) Manager() *eventlog.Manager {
	return e.manager
}

// NewTxID generates an ID for a new transaction.
func (e *Engine) NewTxID() string {
	return e.ids.Generate()
}

// QueueLen returns the number of transactions waiting for the loop.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Submit hands tx to the Run loop and waits for its outcome.
//
// A RuntimeError means the transaction was rejected and nothing was
// recorded. If the instruction itself fails, Submit returns the recorded
// failed receipt together with the *eventlog.Error that caused it.
//
// If ctx ends first, Submit returns ctx.Err(); the transaction may still be
// processed.
func (e *Engine) Submit(ctx context.Context, tx ir.Transaction) (ir.Receipt, error) {
	req := newRequest(tx)
	if !e.queue.Enqueue(req) {
		return ir.Receipt{}, newRuntimeError(ErrCodeEngineStopped, tx.ID, "engine is not accepting transactions")
	}

	select {
	case <-ctx.Done():
		return ir.Receipt{}, ctx.Err()
	case res := <-req.done:
		return res.receipt, res.err
	}
}

// Read returns the storage account of period without going through the loop.
func (e *Engine) Read(ctx context.Context, period uint64) (ir.EventStorage, error) {
	return e.manager.Read(ctx, period)
}

// Run processes submitted transactions until ctx is cancelled or Stop is
// called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// Stop lets queued transactions finish; cancellation answers them with
// ENGINE_STOPPED.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "seq", e.clock.Current())

	for {
		req, ok := e.queue.TryDequeue()
		if ok {
			receipt, err := e.process(ctx, req.tx)
			req.respond(receipt, err)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.rejectPending()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue.
			if e.queue.Len() == 0 && e.queue.Closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop stops accepting transactions. Run returns once the queue is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) rejectPending() {
	for _, req := range e.queue.Drain() {
		req.respond(ir.Receipt{}, newRuntimeError(ErrCodeEngineStopped, req.tx.ID, "engine stopped before processing"))
	}
}

// process validates and executes one transaction.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) process(ctx context.Context, tx ir.Transaction) (ir.Receipt, error) {
	if !ir.ValidInstructionKinds[tx.Instruction.Kind] {
		return ir.Receipt{}, newRuntimeError(ErrCodeUnknownInstruction, tx.ID,
			"unknown instruction kind %q", tx.Instruction.Kind)
	}
	if err := VerifySignature(tx); err != nil {
		slog.Warn("transaction rejected", "tx", tx.ID, "error", err)
		return ir.Receipt{}, err
	}

	seen, err := e.store.HasTransaction(ctx, tx.ID)
	if err != nil {
		return ir.Receipt{}, fmt.Errorf("process %s: %w", tx.ID, err)
	}
	if seen {
		return ir.Receipt{}, newRuntimeError(ErrCodeDuplicateTransaction, tx.ID, "transaction already processed")
	}

	seq := e.clock.Next()
	slog.Debug("processing transaction",
		"tx", tx.ID,
		"seq", seq,
		"kind", tx.Instruction.Kind,
		"period", tx.Instruction.Period,
		"signer", tx.Signer.String(),
	)

	receipt := ir.Receipt{
		TxID:   tx.ID,
		Seq:    seq,
		Kind:   tx.Instruction.Kind,
		Period: tx.Instruction.Period,
		Signer: tx.Signer,
		Target: e.resolveTarget(tx.Instruction),
	}
	programID := e.manager.Deriver().ProgramID
	logs := []string{fmt.Sprintf("Program %s invoke [1]", programID)}

	instrErr := e.execute(ctx, tx, &receipt, &logs)

	code := eventlog.CodeOf(instrErr)
	if instrErr != nil && code == "" {
		// Storage fault: not an instruction outcome, nothing to record.
		slog.Error("transaction processing failed",
			"error", instrErr,
			"tx", tx.ID,
			"seq", seq,
			"kind", tx.Instruction.Kind,
			"period", tx.Instruction.Period,
		)
		return ir.Receipt{}, instrErr
	}

	if instrErr != nil {
		receipt.Status = ir.StatusFailed
		receipt.ErrorCode = string(code)
		receipt.Message = instrErr.Error()
		logs = append(logs, fmt.Sprintf("Program %s failed: %s", programID, code))
	} else {
		receipt.Status = ir.StatusOK
		logs = append(logs, fmt.Sprintf("Program %s success", programID))
	}
	receipt.Logs = logs

	if err := e.store.WriteReceipt(ctx, receipt); err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			return ir.Receipt{}, newRuntimeError(ErrCodeDuplicateTransaction, tx.ID, "transaction already processed")
		}
		return ir.Receipt{}, fmt.Errorf("process %s: %w", tx.ID, err)
	}

	slog.Info("transaction processed",
		"tx", tx.ID,
		"seq", seq,
		"kind", tx.Instruction.Kind,
		"period", tx.Instruction.Period,
		"status", receipt.Status,
		"error_code", receipt.ErrorCode,
	)

	return receipt, instrErr
}

// execute runs the instruction. The returned error is an *eventlog.Error for
// instruction failures and anything else for storage faults.
func (e *Engine) execute(ctx context.Context, tx ir.Transaction, receipt *ir.Receipt, logs *[]string) error {
	instr := tx.Instruction

	switch instr.Kind {
	case ir.InstructionInitialize:
		*logs = append(*logs, "Program log: Instruction: Initialize")
		res, err := e.manager.Initialize(ctx, eventlog.InitializeRequest{
			Period: instr.Period,
			Funder: tx.Signer,
			Target: instr.Target,
		})
		if err != nil {
			return err
		}
		receipt.Target = res.Address
		*logs = append(*logs,
			fmt.Sprintf("Program log: Greetings from: %s", e.manager.Deriver().ProgramID),
			fmt.Sprintf("Program log: allocated %s for period %d (bump %d, %d lamports)",
				res.Address, instr.Period, res.Bump, res.Fee),
		)
		return nil

	case ir.InstructionAppend:
		*logs = append(*logs, "Program log: Instruction: Append")
		res, err := e.manager.Append(ctx, eventlog.AppendRequest{
			Period:  instr.Period,
			Payload: instr.Payload,
			Signer:  tx.Signer,
			Target:  instr.Target,
		})
		if err != nil {
			return err
		}
		receipt.Target = res.Address
		*logs = append(*logs, fmt.Sprintf("Program log: appended event %d (%d bytes)", res.Index, len(instr.Payload)))
		return nil

	default:
		// Unreachable: kinds are checked before a seq is assigned.
		return fmt.Errorf("unhandled instruction kind %q", instr.Kind)
	}
}

// resolveTarget returns the instruction's target, or the derived address
// when the caller left it zero.
func (e *Engine) resolveTarget(instr ir.Instruction) ir.Pubkey {
	if !instr.Target.IsZero() {
		return instr.Target
	}
	addr, _, err := e.manager.Deriver().Derive(instr.Period)
	if err != nil {
		return ir.Pubkey{}
	}
	return addr
}

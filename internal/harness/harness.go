package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/blocklog/internal/engine"
	"github.com/roach88/blocklog/internal/eventlog"
	"github.com/roach88/blocklog/internal/ir"
	"github.com/roach88/blocklog/internal/keys"
	"github.com/roach88/blocklog/internal/store"
	"github.com/roach88/blocklog/internal/testutil"
)

// Harness runs one scenario against a private engine.
type Harness struct {
	store   *store.Store
	engine  *engine.Engine
	manager *eventlog.Manager

	signers map[string]*keys.Keypair
	names   map[ir.Pubkey]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database through a real engine.
// Signers come from testutil.NamedKeypair and transaction IDs from a
// SequentialIDGenerator, so two runs of the same scenario produce the
// same trace.
//
// Expectation and assertion failures are reported in Result.Errors. The
// returned error is reserved for faults that stop the run.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	manager := eventlog.NewManager(st,
		eventlog.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	eng := engine.New(st, manager,
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("tx")),
	)

	h := &Harness{
		store:   st,
		engine:  eng,
		manager: manager,
		signers: make(map[string]*keys.Keypair),
		names:   make(map[ir.Pubkey]string),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx)
	}()

	result := NewResult()
	runErr := h.execute(ctx, scenario, result)

	eng.Stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if runErr != nil {
		return nil, runErr
	}

	for _, msg := range EvaluateAssertions(ctx, h, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	// Airdrop in name order so key derivation order never varies.
	names := make([]string, 0, len(scenario.Accounts))
	for name := range scenario.Accounts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		kp, err := h.signer(name)
		if err != nil {
			return err
		}
		if _, err := h.manager.Airdrop(ctx, kp.Pubkey(), scenario.Accounts[name]); err != nil {
			return fmt.Errorf("airdrop to %s: %w", name, err)
		}
	}

	for i, step := range scenario.Steps {
		var (
			entry TraceEntry
			err   error
		)
		if step.Op == OpRead {
			entry, err = h.read(ctx, i, step, result)
		} else {
			entry, err = h.submit(ctx, i, step, result)
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		result.AddTrace(entry)
	}
	return nil
}

// submit signs and submits an initialize or append step.
func (h *Harness) submit(ctx context.Context, index int, step Step, result *Result) (TraceEntry, error) {
	entry := TraceEntry{
		Step:   index,
		Op:     step.Op,
		Period: step.Period,
		Signer: step.Signer,
	}

	kp, err := h.signer(step.Signer)
	if err != nil {
		return entry, err
	}
	payload, err := step.PayloadBytes()
	if err != nil {
		return entry, err
	}

	instr := ir.Instruction{
		Kind:   ir.InstructionKind(step.Op),
		Period: step.Period,
	}
	if step.Op == OpAppend {
		instr.Payload = payload
	}
	if step.TargetPeriod != nil {
		target, _, err := h.manager.Deriver().Derive(*step.TargetPeriod)
		if err != nil {
			return entry, fmt.Errorf("derive target: %w", err)
		}
		instr.Target = target
	}

	id := step.TxID
	if id == "" {
		id = h.engine.NewTxID()
	}
	tx, err := engine.NewTransaction(id, instr, kp)
	if err != nil {
		return entry, err
	}
	if step.Tamper {
		tx.Signature[0] ^= 0x01
	}

	receipt, err := h.engine.Submit(ctx, tx)
	switch {
	case err == nil:
		entry.Seq = receipt.Seq
		entry.Status = StatusOK
	case engine.CodeOf(err) != "":
		entry.Status = StatusRejected
		entry.Error = string(engine.CodeOf(err))
	case eventlog.CodeOf(err) != "":
		entry.Seq = receipt.Seq
		entry.Status = StatusFailed
		entry.Error = string(eventlog.CodeOf(err))
	default:
		return entry, err
	}

	if step.Op == OpAppend && entry.Status == StatusOK {
		// The receipt does not carry the index; the event just appended is last.
		storage, err := h.manager.Read(ctx, step.Period)
		if err != nil {
			return entry, fmt.Errorf("read back append: %w", err)
		}
		idx := uint64(storage.Len() - 1)
		entry.Index = &idx
	}

	h.checkExpect(index, step, entry, result)
	return entry, nil
}

func (h *Harness) read(ctx context.Context, index int, step Step, result *Result) (TraceEntry, error) {
	entry := TraceEntry{
		Step:   index,
		Op:     step.Op,
		Period: step.Period,
		Status: StatusRead,
	}

	storage, err := h.engine.Read(ctx, step.Period)
	if err != nil {
		code := eventlog.CodeOf(err)
		if code == "" {
			return entry, err
		}
		entry.Error = string(code)
		h.checkExpect(index, step, entry, result)
		return entry, nil
	}

	n := storage.Len()
	entry.Events = &n
	h.checkExpect(index, step, entry, result)

	if step.Expect == nil {
		return entry, nil
	}
	if want := step.Expect.Events; want != nil {
		got := make([]string, len(storage.Events))
		for i, ev := range storage.Events {
			got[i] = string(ev)
		}
		if !slices.Equal(got, want) {
			result.AddError(fmt.Sprintf("steps[%d]: expected events %q, got %q", index, want, got))
		}
	}
	if want := step.Expect.Signers; want != nil {
		got := make([]string, len(storage.Signers))
		for i, pk := range storage.Signers {
			got[i] = h.nameOf(pk)
		}
		if !slices.Equal(got, want) {
			result.AddError(fmt.Sprintf("steps[%d]: expected signers %v, got %v", index, want, got))
		}
	}
	return entry, nil
}

// checkExpect compares the outcome recorded in entry with step.Expect.
func (h *Harness) checkExpect(index int, step Step, entry TraceEntry, result *Result) {
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}
	if entry.Error != want {
		switch {
		case want == "":
			result.AddError(fmt.Sprintf("steps[%d]: expected success, got %s", index, entry.Error))
		case entry.Error == "":
			result.AddError(fmt.Sprintf("steps[%d]: expected %s, got success", index, want))
		default:
			result.AddError(fmt.Sprintf("steps[%d]: expected %s, got %s", index, want, entry.Error))
		}
	}

	if step.Expect != nil && step.Expect.Index != nil {
		if entry.Index == nil || *entry.Index != *step.Expect.Index {
			got := "none"
			if entry.Index != nil {
				got = fmt.Sprint(*entry.Index)
			}
			result.AddError(fmt.Sprintf("steps[%d]: expected index %d, got %s", index, *step.Expect.Index, got))
		}
	}
}

// signer returns the keypair for name, deriving it on first use.
func (h *Harness) signer(name string) (*keys.Keypair, error) {
	if kp, ok := h.signers[name]; ok {
		return kp, nil
	}
	kp, err := testutil.NamedKeypair(name)
	if err != nil {
		return nil, err
	}
	h.signers[name] = kp
	h.names[kp.Pubkey()] = name
	return kp, nil
}

// nameOf maps a pubkey back to its scenario name, or base58 if unknown.
func (h *Harness) nameOf(pk ir.Pubkey) string {
	if name, ok := h.names[pk]; ok {
		return name
	}
	return pk.String()
}

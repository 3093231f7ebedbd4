package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/blocklog/internal/eventlog"
)

// AssertionError is returned when an assertion fails.
// It carries the step trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, entry := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s period=%d %s", entry.Step, entry.Op, entry.Period, entry.Status)
		if entry.Error != "" {
			fmt.Fprintf(&buf, " %s", entry.Error)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

func (h *Harness) assertEventCount(ctx context.Context, trace []TraceEntry, a Assertion) error {
	got := 0
	storage, err := h.manager.Read(ctx, a.Period)
	switch {
	case err == nil:
		got = storage.Len()
	case eventlog.IsCode(err, eventlog.ErrCodeNotFound):
		// An absent account holds no events.
	default:
		return err
	}

	if got != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events in period %d", a.Count, a.Period),
			Actual:   fmt.Sprintf("%d events", got),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertBalance(ctx context.Context, trace []TraceEntry, a Assertion) error {
	kp, err := h.signer(a.Account)
	if err != nil {
		return err
	}
	got, err := h.manager.Balance(ctx, kp.Pubkey())
	if err != nil {
		return err
	}

	if got != a.Lamports {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s holds %d lamports", a.Account, a.Lamports),
			Actual:   fmt.Sprintf("%d lamports", got),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertReceiptCount(ctx context.Context, trace []TraceEntry, a Assertion) error {
	receipts, err := h.store.ListReceipts(ctx, 0)
	if err != nil {
		return err
	}

	got := 0
	for _, r := range receipts {
		if a.Status == "" || string(r.Status) == a.Status {
			got++
		}
	}

	if got != a.Count {
		what := "receipts"
		if a.Status != "" {
			what = a.Status + " receipts"
		}
		return &AssertionError{
			Type:     AssertReceiptCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d %s", got, what),
			Trace:    trace,
		}
	}
	return nil
}

func (h *Harness) assertAuditClean(ctx context.Context, trace []TraceEntry) error {
	report, err := h.engine.Audit(ctx)
	if err != nil {
		return err
	}
	if !report.OK() {
		problems := make([]string, len(report.Findings))
		for i, f := range report.Findings {
			problems[i] = fmt.Sprintf("period %d: %s", f.Period, f.Problem)
		}
		return &AssertionError{
			Type:     AssertAuditClean,
			Expected: "no audit findings",
			Actual:   strings.Join(problems, "; "),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the harness state.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, h *Harness, result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertEventCount:
			err = h.assertEventCount(ctx, result.Trace, assertion)
		case AssertBalance:
			err = h.assertBalance(ctx, result.Trace, assertion)
		case AssertReceiptCount:
			err = h.assertReceiptCount(ctx, result.Trace, assertion)
		case AssertAuditClean:
			err = h.assertAuditClean(ctx, result.Trace)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

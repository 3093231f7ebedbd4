package engine

import (
	"context"
	"fmt"

	"github.com/roach88/blocklog/internal/ir"
)

// AuditFinding describes one account that fails an integrity check.
type AuditFinding struct {
	Address ir.Pubkey `json:"address"`
	Period  uint64    `json:"period"`
	Problem string    `json:"problem"`
}

// AuditReport is the result of Audit.
type AuditReport struct {
	Accounts int            `json:"accounts"`
	Events   uint64         `json:"events"`
	Findings []AuditFinding `json:"findings"`
}

// OK reports whether the audit found no problems.
func (r AuditReport) OK() bool {
	return len(r.Findings) == 0
}

// Audit re-checks every stored account against the rules enforced when it
// was written:
//
//   - the account is owned by the engine's program
//   - the stored period and bump re-derive the account's address
//   - the stored bump is the canonical one for the period
//   - event rows form a dense sequence matching the account's counter, so
//     events and signers stay index-aligned
//
// Audit only reads and is safe to run alongside Run.
func (e *Engine) Audit(ctx context.Context) (AuditReport, error) {
	states, err := e.store.ListAccountStates(ctx)
	if err != nil {
		return AuditReport{}, fmt.Errorf("audit: %w", err)
	}

	d := e.manager.Deriver()
	report := AuditReport{Accounts: len(states), Findings: []AuditFinding{}}

	for _, st := range states {
		h := st.Header
		report.Events += st.RowCount
		finding := func(format string, args ...any) {
			report.Findings = append(report.Findings, AuditFinding{
				Address: h.Address,
				Period:  h.Period,
				Problem: fmt.Sprintf(format, args...),
			})
		}

		if h.Owner != d.ProgramID {
			finding("owned by %s, not %s", h.Owner, d.ProgramID)
		}

		ok, err := d.Verify(h.Period, h.Bump, h.Address)
		if err != nil {
			return AuditReport{}, fmt.Errorf("audit period %d: %w", h.Period, err)
		}
		if !ok {
			finding("bump %d does not re-derive the address", h.Bump)
		} else if _, canonical, err := d.Derive(h.Period); err == nil && canonical != h.Bump {
			finding("bump %d is not the canonical bump %d", h.Bump, canonical)
		}

		if !st.Consistent() {
			finding("event counter %d disagrees with %d stored rows (max index %d)",
				h.EventCount, st.RowCount, st.MaxIndex)
		}
	}

	return report, nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/blocklog/internal/engine"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check stored accounts for integrity",
		Long: `Re-check every stored account: ownership, address derivation, canonical
bump and the alignment of events with signers.

Exit codes:
  0 - No findings
  1 - One or more accounts failed a check
  2 - Command error

Example:
  blocklog audit --db ./blocklog.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}
	return cmd
}

// auditView renders an audit report.
type auditView struct {
	engine.AuditReport
}

func (v auditView) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Audited %d accounts, %d events\n", v.Accounts, v.Events)
	for _, f := range v.Findings {
		fmt.Fprintf(w, "  period %d (%s): %s\n", f.Period, f.Address, f.Problem)
	}
	if v.OK() {
		fmt.Fprintln(w, "✓ No findings")
	}
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	e, err := openEnv(cmd, opts)
	if err != nil {
		return out.Fail(err, nil)
	}
	defer e.Close()

	report, err := e.engine.Audit(cmd.Context())
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "audit failed", err), nil)
	}

	if !report.OK() {
		msg := fmt.Sprintf("%d finding(s)", len(report.Findings))
		if opts.Format == "json" {
			if err := out.Error("E_AUDIT_FAILED", msg, auditView{report}); err != nil {
				return err
			}
		} else {
			auditView{report}.WriteText(cmd.OutOrStdout())
		}
		return &ExitError{Code: ExitFailure, Message: msg, Reported: true}
	}
	return out.Success(auditView{report})
}

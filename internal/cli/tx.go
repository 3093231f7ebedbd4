package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blocklog/internal/store"
)

// TxOptions holds flags for the tx command.
type TxOptions struct {
	*RootOptions
	Limit int
}

// NewTxCommand creates the tx command.
func NewTxCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tx [id]",
		Short: "Show processed transactions",
		Long: `Show the receipt of one transaction, or list receipts in sequence order
when no ID is given.

Examples:
  blocklog tx 019237c1-5f3e-7a6b-9c2d-3e4f5a6b7c8d
  blocklog tx --limit 20`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runTx(opts, id, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum receipts to list (0 = all)")

	return cmd
}

func runTx(opts *TxOptions, id string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	e, err := openEnv(cmd, opts.RootOptions)
	if err != nil {
		return out.Fail(err, nil)
	}
	defer e.Close()

	if id == "" {
		receipts, err := e.store.ListReceipts(cmd.Context(), opts.Limit)
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to list transactions", err), nil)
		}
		return out.Success(receiptListView{Receipts: receipts})
	}

	receipt, err := e.store.ReadReceipt(cmd.Context(), id)
	if errors.Is(err, store.ErrTransactionNotFound) {
		return out.Fail(NewExitError(ExitFailure, fmt.Sprintf("transaction %s not found", id)), nil)
	}
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to read transaction", err), nil)
	}
	return out.Success(receiptView{receipt})
}

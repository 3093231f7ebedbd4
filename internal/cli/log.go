package cli

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/blocklog/internal/ir"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Period uint64
	Funder string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the storage account of a period",
		Long: `Create the storage account of a period, paying the allocation fee from
the funder. A period can be initialized exactly once.

Exit codes:
  0 - Account created
  1 - Instruction failed (ALREADY_INITIALIZED, INSUFFICIENT_FUNDS, ...)
  2 - Command error

Example:
  blocklog init --period 42 --funder ./alice.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Period, "period", 0, "period identifier (required)")
	cmd.Flags().StringVar(&opts.Funder, "funder", "", "funding keypair file (default: config keypair)")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	e, err := openEnv(cmd, opts.RootOptions)
	if err != nil {
		return out.Fail(err, nil)
	}
	defer e.Close()

	funder, err := loadSigner(opts.Funder, e.cfg)
	if err != nil {
		return out.Fail(err, nil)
	}

	receipt, err := e.submit(cmd.Context(), ir.Instruction{
		Kind:   ir.InstructionInitialize,
		Period: opts.Period,
	}, funder)
	return report(out, receipt, err)
}

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Period      uint64
	Signer      string
	Payload     string
	PayloadHex  string
	PayloadFile string
	Target      string
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append an event to a period's log",
		Long: `Append one payload to the log of an initialized period. The signer is
recorded alongside the payload.

--target names the account to write to; it must be the period's derived
address. By default the address is derived.

Exit codes:
  0 - Event appended
  1 - Instruction failed (NOT_INITIALIZED, ADDRESS_MISMATCH, ...)
  2 - Command error

Examples:
  blocklog append --period 42 --signer ./alice.json --payload "hello"
  blocklog append --period 42 --payload-hex 00ff10
  blocklog append --period 42 --payload-file ./event.bin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Period, "period", 0, "period identifier (required)")
	cmd.Flags().StringVar(&opts.Signer, "signer", "", "signing keypair file (default: config keypair)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "payload text")
	cmd.Flags().StringVar(&opts.PayloadHex, "payload-hex", "", "payload as hex")
	cmd.Flags().StringVar(&opts.PayloadFile, "payload-file", "", "read payload bytes from file")
	cmd.Flags().StringVar(&opts.Target, "target", "", "target account address (default: derived)")
	_ = cmd.MarkFlagRequired("period")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-hex", "payload-file")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	payload, err := readPayload(opts)
	if err != nil {
		return out.Fail(err, nil)
	}

	var target ir.Pubkey
	if opts.Target != "" {
		target, err = ir.ParsePubkey(opts.Target)
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "invalid --target", err), nil)
		}
	}

	e, err := openEnv(cmd, opts.RootOptions)
	if err != nil {
		return out.Fail(err, nil)
	}
	defer e.Close()

	signer, err := loadSigner(opts.Signer, e.cfg)
	if err != nil {
		return out.Fail(err, nil)
	}

	out.VerboseLog("appending %d bytes to period %d", len(payload), opts.Period)
	receipt, err := e.submit(cmd.Context(), ir.Instruction{
		Kind:    ir.InstructionAppend,
		Period:  opts.Period,
		Payload: payload,
		Target:  target,
	}, signer)
	return report(out, receipt, err)
}

func readPayload(opts *AppendOptions) ([]byte, error) {
	switch {
	case opts.PayloadHex != "":
		b, err := hex.DecodeString(opts.PayloadHex)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --payload-hex", err)
		}
		return b, nil
	case opts.PayloadFile != "":
		b, err := os.ReadFile(opts.PayloadFile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read payload file", err)
		}
		return b, nil
	default:
		return []byte(opts.Payload), nil
	}
}

// report prints the outcome of a submitted transaction.
// Failed instructions print the recorded receipt as error details.
func report(out *OutputFormatter, receipt ir.Receipt, err error) error {
	if err != nil {
		if receipt.TxID != "" {
			return out.Fail(err, receiptView{receipt})
		}
		return out.Fail(err, nil)
	}
	return out.Success(receiptView{receipt})
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Period uint64
	Raw    bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a period's log",
		Long: `Show a period's storage account with its events and signers in append
order. --raw prints the binary account encoding as base64 instead.

Examples:
  blocklog show --period 42
  blocklog show --period 42 --raw`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Period, "period", 0, "period identifier (required)")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print the binary account encoding")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	e, err := openEnv(cmd, opts.RootOptions)
	if err != nil {
		return out.Fail(err, nil)
	}
	defer e.Close()

	storage, err := e.engine.Read(cmd.Context(), opts.Period)
	if err != nil {
		return out.Fail(err, nil)
	}
	if len(storage.Events) != len(storage.Signers) {
		return out.Fail(NewExitError(ExitFailure,
			fmt.Sprintf("period %d: %d events but %d signers", opts.Period, len(storage.Events), len(storage.Signers))), nil)
	}

	if opts.Raw {
		return out.Success(rawView{
			Address:  storage.Address,
			Encoding: "base64",
			Data:     base64.StdEncoding.EncodeToString(ir.EncodeEventStorage(storage)),
		})
	}
	return out.Success(newStorageView(storage))
}

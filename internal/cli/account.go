package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/blocklog/internal/address"
	"github.com/roach88/blocklog/internal/keys"
)

// DeriveOptions holds flags for the derive command.
type DeriveOptions struct {
	*RootOptions
	Period uint64
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the storage address of a period",
		Long: `Derive the storage account address and bump for a period.

Derivation is offline: it depends only on the program ID and namespace from
the config, never on the database.

Example:
  blocklog derive --period 42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Period, "period", 0, "period identifier (required)")
	_ = cmd.MarkFlagRequired("period")

	return cmd
}

func runDerive(opts *DeriveOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return out.Fail(err, nil)
	}
	deriver, err := cfg.Deriver()
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "invalid config", err), nil)
	}

	addr, bump, err := deriver.Derive(opts.Period)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "derivation failed", err), nil)
	}

	return out.Success(newKV().
		add("period", opts.Period).
		add("address", addr).
		add("bump", bump).
		add("program_id", deriver.ProgramID).
		add("period_seed", hex.EncodeToString(address.PeriodSeed(opts.Period))))
}

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Out   string
	Force bool
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signer keypair file",
		Long: `Generate a new ed25519 keypair and write it to a file readable only by
its owner. The file holds the 64 private key bytes as a JSON array.

Example:
  blocklog keygen --out ./alice.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "keypair file to write (required)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	if !opts.Force {
		if _, err := os.Stat(opts.Out); err == nil {
			return out.Fail(NewExitError(ExitCommandError,
				fmt.Sprintf("%s already exists (use --force to overwrite)", opts.Out)), nil)
		} else if !errors.Is(err, os.ErrNotExist) {
			return out.Fail(WrapExitError(ExitCommandError, "failed to check output file", err), nil)
		}
	}

	kp, err := keys.Generate()
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to generate keypair", err), nil)
	}
	if err := keys.Save(opts.Out, kp); err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to write keypair", err), nil)
	}

	return out.Success(newKV().
		add("pubkey", kp.Pubkey()).
		add("path", opts.Out))
}

// AirdropOptions holds flags for the airdrop command.
type AirdropOptions struct {
	*RootOptions
	To       string
	Lamports uint64
}

// NewAirdropCommand creates the airdrop command.
func NewAirdropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AirdropOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Credit lamports to an identity",
		Long: `Credit lamports to an identity so it can fund period accounts.

--to takes a base58 pubkey or the path of a keypair file.

Example:
  blocklog airdrop --to ./alice.json --lamports 5000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAirdrop(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "receiving pubkey or keypair file (required)")
	cmd.Flags().Uint64Var(&opts.Lamports, "lamports", 0, "amount to credit (required)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("lamports")

	return cmd
}

func runAirdrop(opts *AirdropOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	to, err := resolvePubkey(opts.To)
	if err != nil {
		return out.Fail(err, nil)
	}

	e, err := openEnv(cmd, opts.RootOptions)
	if err != nil {
		return out.Fail(err, nil)
	}
	defer e.Close()

	balance, err := e.manager.Airdrop(cmd.Context(), to, opts.Lamports)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "airdrop failed", err), nil)
	}

	return out.Success(newKV().
		add("identity", to).
		add("credited", opts.Lamports).
		add("balance", balance))
}

// BalanceOptions holds flags for the balance command.
type BalanceOptions struct {
	*RootOptions
	Of string
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BalanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the balance of an identity",
		Long: `Show the transferable balance of an identity and the fee an initialize
would charge it.

Example:
  blocklog balance --of 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Of, "of", "", "pubkey or keypair file (required)")
	_ = cmd.MarkFlagRequired("of")

	return cmd
}

func runBalance(opts *BalanceOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	of, err := resolvePubkey(opts.Of)
	if err != nil {
		return out.Fail(err, nil)
	}

	e, err := openEnv(cmd, opts.RootOptions)
	if err != nil {
		return out.Fail(err, nil)
	}
	defer e.Close()

	balance, err := e.manager.Balance(cmd.Context(), of)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "balance lookup failed", err), nil)
	}
	fee, err := e.manager.Fee()
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "invalid rent config", err), nil)
	}

	return out.Success(newKV().
		add("identity", of).
		add("lamports", balance).
		add("initialize_fee", fee))
}

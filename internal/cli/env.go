package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/blocklog/internal/config"
	"github.com/roach88/blocklog/internal/engine"
	"github.com/roach88/blocklog/internal/eventlog"
	"github.com/roach88/blocklog/internal/ir"
	"github.com/roach88/blocklog/internal/keys"
	"github.com/roach88/blocklog/internal/store"
)

// env is the state shared by commands that touch the database.
type env struct {
	cfg     config.Config
	store   *store.Store
	manager *eventlog.Manager
	engine  *engine.Engine
}

// loadConfig loads the configuration named by --config and applies the
// flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// setupLogging installs the process logger on the command's stderr.
// --verbose forces debug level; otherwise the config decides.
func setupLogging(cmd *cobra.Command, opts *RootOptions, cfg config.Config) {
	logLevel := cfg.SlogLevel()
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// quietLogging logs only warnings and errors unless --verbose is set.
func quietLogging(cmd *cobra.Command, opts *RootOptions) {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})))
}

// openEnv loads config, opens the database (creating it if it doesn't
// exist) and wires the manager and engine.
func openEnv(cmd *cobra.Command, opts *RootOptions) (*env, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	setupLogging(cmd, opts, cfg)

	deriver, err := cfg.Deriver()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	manager := eventlog.NewManager(st,
		eventlog.WithDeriver(deriver),
		eventlog.WithRent(cfg.EventlogRent()),
		eventlog.WithLogger(slog.Default()),
	)
	return &env{
		cfg:     cfg,
		store:   st,
		manager: manager,
		engine:  engine.New(st, manager),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// submit signs instr with signer and runs it through a short-lived engine
// loop. The returned error is whatever engine.Submit returned.
func (e *env) submit(ctx context.Context, instr ir.Instruction, signer *keys.Keypair) (ir.Receipt, error) {
	if err := e.engine.Resume(ctx); err != nil {
		return ir.Receipt{}, WrapExitError(ExitCommandError, "failed to resume engine", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.engine.Run(runCtx)
	}()

	tx, err := engine.NewTransaction(e.engine.NewTxID(), instr, signer)
	if err != nil {
		e.engine.Stop()
		<-done
		return ir.Receipt{}, WrapExitError(ExitCommandError, "failed to sign transaction", err)
	}

	receipt, submitErr := e.engine.Submit(ctx, tx)
	e.engine.Stop()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("engine error", "error", runErr)
	}
	return receipt, submitErr
}

// loadSigner loads the keypair file at path, falling back to the config's
// keypair when path is empty.
func loadSigner(path string, cfg config.Config) (*keys.Keypair, error) {
	if path == "" {
		path = cfg.Keypair
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no keypair: pass a keypair file or set keypair in the config")
	}
	kp, err := keys.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load keypair", err)
	}
	return kp, nil
}

// resolvePubkey accepts a base58 pubkey or the path of a keypair file.
func resolvePubkey(s string) (ir.Pubkey, error) {
	if pk, err := ir.ParsePubkey(s); err == nil {
		return pk, nil
	}
	if _, err := os.Stat(s); err != nil {
		return ir.Pubkey{}, NewExitError(ExitCommandError, fmt.Sprintf("%q is neither a pubkey nor a keypair file", s))
	}
	kp, err := keys.Load(s)
	if err != nil {
		return ir.Pubkey{}, WrapExitError(ExitCommandError, "failed to load keypair", err)
	}
	return kp.Pubkey(), nil
}

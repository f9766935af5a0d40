// Package cli implements the reconcile command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/storage"
)

// app carries state shared by every subcommand
type app struct {
	flags  GlobalFlags
	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the reconcile command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "reconcile",
		Short:         "Reconcile bank transactions against receipts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	a.flags.Register(root)

	root.AddCommand(
		newValidateCommand(a),
		newAcceptCommand(a),
		newSessionsCommand(a),
		newRunsCommand(a),
		newExportCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)

	return root
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	a.cfg = config.LoadOrEnv_WithPath(a.flags.ConfigPath)
	if a.flags.DBPath != "" {
		a.cfg.Storage.DatabasePath = a.flags.DBPath
	}

	loggingCfg := a.cfg.Observability.Logging
	if a.flags.Verbose {
		loggingCfg.Level = "debug"
	}
	a.logger = logging.NewLoggerTo(cmd.ErrOrStderr(), loggingCfg)
	return nil
}

// openService opens the database and wires the session service. The
// returned func closes both.
func (a *app) openService(ctx context.Context) (*service.SessionService, func(), error) {
	store, err := storage.NewStorageWithLogger(a.cfg.Storage.DatabasePath, a.logger.With("system", "storage"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	svc, closeAdvisor, err := NewSessionService(ctx, a.cfg, store, a.logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return svc, func() {
		closeAdvisor()
		_ = store.Close()
	}, nil
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/tables"
	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

func newValidateCommand(a *app) *cobra.Command {
	flags := &ValidateFlags{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Match a transactions table against a proofs table",
		Long: `Loads the given tables, matches every transaction to its proof, asks the
advisor for pairings among the leftovers and merges the result into the
session. A table that is not given is taken from the session's accumulated
rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.TransactionsPath == "" && flags.ProofsPath == "" {
				return errors.New("at least one of --transactions or --proofs is required")
			}

			txns, err := loadTable(flags.TransactionsPath, tables.TableTransactions)
			if err != nil {
				return err
			}
			proofs, err := loadTable(flags.ProofsPath, tables.TableProofs)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, closeFn, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			sessionID := flags.SessionID
			if sessionID == "" {
				session, err := svc.CreateSession(ctx, flags.SessionName)
				if err != nil {
					return err
				}
				sessionID = session.ID
			}

			out := cmd.OutOrStdout()
			PrintHeader(out, "validate", sessionID)
			a.logger.Info("validating",
				"session_id", sessionID,
				"transactions", len(txns),
				"proofs", len(proofs))

			outcome, err := svc.Validate(ctx, sessionID, txns, proofs, service.ValidateOptions{
				ConvertCurrency: flags.ConvertCurrency,
			})
			if err != nil {
				return err
			}

			PrintOutcome(out, outcome)
			if outcome.Failed() {
				return fmt.Errorf("run %d failed: %w", outcome.RunID, outcome.AdvisorErr)
			}
			return nil
		},
	}
	flags.Register(cmd)

	return cmd
}

func loadTable(path, table string) ([]record.Record, error) {
	if path == "" {
		return nil, nil
	}
	return tables.Load(path, table)
}

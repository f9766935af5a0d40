package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/tables"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// Tables that can be written as CSV
const (
	TableAllTransactions       = "transactions"
	TableAllProofs             = "proofs"
	TableUnmatchedTransactions = "unmatched-transactions"
	TableUnmatchedProofs       = "unmatched-proofs"
)

func newExportCommand(a *app) *cobra.Command {
	flags := &ExportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a session's state to a workbook or CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			session, err := svc.GetSession(flags.SessionID)
			if err != nil {
				return err
			}

			if err := writeExport(flags.Output, flags.Table, session.State); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", flags.Output)
			return nil
		},
	}
	flags.Register(cmd)

	return cmd
}

func writeExport(path, table string, s state.State) error {
	ext := strings.ToLower(filepath.Ext(path))

	var rows []record.Record
	switch ext {
	case ".xlsx":
	case ".csv":
		var err error
		if rows, err = selectTable(table, s); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s", tables.ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if ext == ".xlsx" {
		err = tables.WriteReport(f, s)
	} else {
		err = tables.WriteCSV(f, rows)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func selectTable(table string, s state.State) ([]record.Record, error) {
	switch table {
	case TableAllTransactions:
		return s.Transactions, nil
	case TableAllProofs:
		return s.Proofs, nil
	case TableUnmatchedTransactions:
		return s.UnmatchedTransactions, nil
	case TableUnmatchedProofs:
		return s.UnmatchedProofs, nil
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
}

package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags are available to every command
type GlobalFlags struct {
	ConfigPath string
	DBPath     string
	Verbose    bool
}

// Register adds the global flags to cmd as persistent flags
func (f *GlobalFlags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.ConfigPath, "config", "config.yaml", "Configuration file (falls back to environment variables)")
	cmd.PersistentFlags().StringVar(&f.DBPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().BoolVarP(&f.Verbose, "verbose", "v", false, "Verbose output")
}

// ValidateFlags are the flags of the validate command
type ValidateFlags struct {
	TransactionsPath string
	ProofsPath       string
	SessionID        string
	SessionName      string
	ConvertCurrency  bool
}

// Register adds the validate flags to cmd
func (f *ValidateFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.TransactionsPath, "transactions", "t", "", "Transactions table (.csv or .xlsx)")
	cmd.Flags().StringVarP(&f.ProofsPath, "proofs", "p", "", "Proofs table (.csv or .xlsx)")
	cmd.Flags().StringVarP(&f.SessionID, "session", "s", "", "Session to add to (a new session is created when empty)")
	cmd.Flags().StringVar(&f.SessionName, "name", "", "Name of the new session")
	cmd.Flags().BoolVar(&f.ConvertCurrency, "convert-currency", false, "Convert non-USD totals to USD before matching")
}

// ExportFlags are the flags of the export command
type ExportFlags struct {
	SessionID string
	Output    string
	Table     string
}

// Register adds the export flags to cmd
func (f *ExportFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.SessionID, "session", "s", "", "Session to export")
	cmd.Flags().StringVarP(&f.Output, "out", "o", "report.xlsx", "Output file (.xlsx report or .csv table)")
	cmd.Flags().StringVar(&f.Table, "table", TableUnmatchedTransactions, "Table to write when the output is .csv")
	_ = cmd.MarkFlagRequired("session")
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port int
}

// Register adds the serve flags to cmd
func (f *ServeFlags) Register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.Port, "port", 0, "Port to listen on (overrides config)")
}

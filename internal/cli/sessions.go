package cli

import (
	"github.com/spf13/cobra"
)

func newSessionsCommand(a *app) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := svc.ListSessions(limit, offset)
			if err != nil {
				return err
			}

			PrintSessions(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum sessions to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Sessions to skip")

	return cmd
}

func newRunsCommand(a *app) *cobra.Command {
	var (
		sessionID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show a session's run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := svc.ListRuns(sessionID, limit)
			if err != nil {
				return err
			}

			PrintRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session to inspect")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

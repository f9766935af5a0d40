package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newAcceptCommand(a *app) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "accept <index>...",
		Short: "Accept recommendations by their index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices := make([]int, 0, len(args))
			for _, arg := range args {
				i, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid index %q", arg)
				}
				indices = append(indices, i)
			}

			ctx := cmd.Context()
			svc, closeFn, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			outcome, err := svc.Accept(ctx, sessionID, indices)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			PrintHeader(out, "accept", sessionID)
			PrintOutcome(out, outcome)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session holding the recommendations")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

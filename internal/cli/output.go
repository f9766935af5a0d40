package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/storage"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, command, sessionID string) {
	fmt.Fprintf(w, "reconcile: %s (session %s)\n", command, sessionID)
}

// PrintSummary prints per-category counts
func PrintSummary(w io.Writer, sum state.Summary) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Summary: Validated=%d (Recommended=%d) Discrepancies=%d Unmatched=%d/%d Recommendations=%d\n",
		sum.Validated,
		sum.Recommended,
		sum.Discrepancies,
		sum.UnmatchedTransactions,
		sum.UnmatchedProofs,
		sum.Recommendations)
}

// PrintOutcome prints the result of a validate or accept run
func PrintOutcome(w io.Writer, outcome *service.Outcome) {
	st := outcome.State

	if len(st.Discrepancies) > 0 {
		fmt.Fprintln(w, "\nDiscrepancies:")
		printPairs(w, st.Discrepancies)
	}
	if len(st.UnmatchedTransactions) > 0 {
		fmt.Fprintln(w, "\nUnmatched transactions:")
		printRecords(w, st.UnmatchedTransactions)
	}
	if len(st.UnmatchedProofs) > 0 {
		fmt.Fprintln(w, "\nUnmatched proofs:")
		printRecords(w, st.UnmatchedProofs)
	}
	if len(st.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations (accept with: reconcile accept --session "+outcome.SessionID+" <index>...):")
		printRecommendations(w, st.Recommendations)
	}

	PrintSummary(w, st.Summary())
	fmt.Fprintf(w, "\n%s\n", outcome.Status)

	if outcome.Failed() {
		fmt.Fprintf(w, "Run %d recorded as failed.\n", outcome.RunID)
	} else if st.IsReconciled() {
		fmt.Fprintln(w, "Everything is reconciled.")
	}
}

// PrintSessions prints a page of sessions
func PrintSessions(w io.Writer, result *storage.SessionListResult) {
	if len(result.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPDATED\tVALIDATED\tDISCREPANCIES\tUNMATCHED\tRECOMMENDATIONS")
	for _, s := range result.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d/%d\t%d\n",
			s.ID, s.Name, s.UpdatedAt.Local().Format("2006-01-02 15:04"),
			s.Summary.Validated, s.Summary.Discrepancies,
			s.Summary.UnmatchedTransactions, s.Summary.UnmatchedProofs,
			s.Summary.Recommendations)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d of %d sessions\n", len(result.Sessions), result.TotalCount)
}

// PrintRuns prints a session's run history
func PrintRuns(w io.Writer, runs []storage.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tSTARTED\tDURATION\tDETAIL")
	for _, r := range runs {
		detail := r.Message
		if r.ErrorMessage != "" {
			detail = r.ErrorMessage
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.Status, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Millisecond), detail)
	}
	_ = tw.Flush()
}

func printRecords(w io.Writer, rows []record.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.BusinessName, r.Total.StringFixed(2), r.Date)
	}
	_ = tw.Flush()
}

func printPairs(w io.Writer, pairs []reconciler.MatchedPair) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range pairs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\tproof %s\tdelta %s\n",
			p.Transaction.BusinessName, p.Transaction.Date,
			p.Transaction.Total.StringFixed(2), p.Proof.Total.StringFixed(2), p.Delta.StringFixed(2))
	}
	_ = tw.Flush()
}

func printRecommendations(w io.Writer, recs []advisor.Recommendation) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, r := range recs {
		fmt.Fprintf(tw, "  [%d]\t%s %s %s\t<->\t%s %s %s\t%s\n", i,
			r.TransactionBusinessName, r.TransactionTotal.StringFixed(2), r.TransactionDate,
			r.ProofBusinessName, r.ProofTotal.StringFixed(2), r.ProofDate,
			r.Reason)
	}
	_ = tw.Flush()
}

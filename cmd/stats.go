package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/suplook/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show lead totals",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Leads.Summary(ctx)
		if err != nil {
			return eris.Wrap(err, "stats")
		}
		fmt.Printf("Total: %d\nPending: %d\nGraduated: %d\nCorrected: %d\nCorrection rules: %d\n",
			sum.Total, sum.Pending, sum.Graduated, sum.Corrected, env.Corrections.Count())
		return nil
	},
}

var statsOutcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Show field outcome rates by tier",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Leads.OutcomeStats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats outcomes")
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(os.Stdout, st)
		}
		formatOutcomeStats(os.Stdout, st)
		return nil
	},
}

var statsAccuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Show how often suggested products matched field reality",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Leads.AccuracyStats(ctx)
		if err != nil {
			return eris.Wrap(err, "stats accuracy")
		}
		return printJSON(os.Stdout, st)
	},
}

func formatOutcomeStats(w io.Writer, st model.OutcomeStats) {
	fmt.Fprintf(w, "Leads: %d  No reply: %d  Replied: %d  Sold: %d  Lost: %d  No outcome: %d\n",
		st.Total, st.NoReply, st.Replied, st.Sold, st.Lost, st.NoOutcome)
	fmt.Fprintf(w, "Reply rate: %s  Conversion rate: %s\n\n", st.ReplyRate, st.ConversionRate)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tLEADS\tSOLD")
	for _, tier := range []string{"tier1", "tier2", "tier3"} {
		t := st.ByTier[tier]
		fmt.Fprintf(tw, "%s\t%d\t%d\n", tier, t.Total, t.Sold)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	statsOutcomesCmd.Flags().Bool("json", false, "print as JSON")
	statsCmd.AddCommand(statsOutcomesCmd, statsAccuracyCmd)
	rootCmd.AddCommand(statsCmd)
}

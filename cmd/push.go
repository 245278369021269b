package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/suplook/internal/crm"
)

var pushCmd = &cobra.Command{
	Use:   "push [lead-id...]",
	Short: "Push graduated leads to Salesforce",
	Long:  "Creates Salesforce Lead records for graduated leads that have not been pushed. With no ids the whole queue is pushed. A lead whose phone already exists in Salesforce is linked instead of duplicated.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			queue, err := env.Pusher.Queue(ctx)
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				fmt.Fprintln(os.Stderr, "Queue is empty.")
				return nil
			}
			formatLeadsList(os.Stdout, queue)
			return nil
		}

		if !env.Pusher.Enabled() {
			return eris.Wrap(crm.ErrDisabled, "push")
		}
		res, err := env.Pusher.Push(ctx, args)
		if err != nil {
			return eris.Wrap(err, "push")
		}
		fmt.Printf("Created %d, linked %d, skipped %d, failed %d.\n", res.Created, res.Linked, res.Skipped, res.Failed)
		for _, l := range res.Leads {
			if l.Error != "" {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", l.LeadID, l.Error)
			}
		}
		if res.Failed > 0 {
			return eris.Errorf("push: %d leads failed", res.Failed)
		}
		return nil
	},
}

func init() {
	pushCmd.Flags().Bool("dry-run", false, "list the queue without pushing")
	rootCmd.AddCommand(pushCmd)
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/suplook/internal/catalog"
	"github.com/sells-group/suplook/internal/lead"
	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Review, graduate, and record outcomes for leads",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var filter store.LeadFilter
		if cmd.Flags().Changed("graduated") {
			g, _ := cmd.Flags().GetBool("graduated")
			filter.Graduated = &g
		}
		res, err := env.Leads.List(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(os.Stdout, res)
		}
		if len(res.Leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		formatLeadsList(os.Stdout, res.Leads)
		fmt.Printf("\n%d total, %d pending, %d graduated\n", res.Total, res.Pending, res.Graduated)
		return nil
	},
}

// -- leads graduate --

var leadsGraduateCmd = &cobra.Command{
	Use:   "graduate <lead-id>",
	Short: "Approve a lead, optionally replacing its products",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		notes, _ := cmd.Flags().GetString("notes")
		skus, _ := cmd.Flags().GetStringSlice("products")
		req := lead.GraduateRequest{Notes: notes}
		if len(skus) > 0 {
			req.Products, err = resolvePicks(env.Catalog, skus)
			if err != nil {
				return err
			}
		}

		res, err := env.Leads.Graduate(ctx, args[0], req)
		if err != nil {
			return eris.Wrap(err, "leads graduate")
		}
		fmt.Printf("Graduated %s (ai_corrected=%t). %d pending.\n", res.Lead.Name, res.Lead.AICorrected, res.Pending)
		return nil
	},
}

// -- leads graduate-all --

var leadsGraduateAllCmd = &cobra.Command{
	Use:   "graduate-all",
	Short: "Graduate every pending lead as-is",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Leads.GraduateAll(ctx)
		if err != nil {
			return eris.Wrap(err, "leads graduate-all")
		}
		fmt.Printf("Graduated %d leads. %d total, %d pending.\n", res.Graduated, res.Total, res.Pending)
		return nil
	},
}

// -- leads outcome --

var leadsOutcomeCmd = &cobra.Command{
	Use:   "outcome <lead-id> <no_reply|replied|sold|lost>",
	Short: "Record a field outcome for a lead",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		notes, _ := cmd.Flags().GetString("notes")
		actual, _ := cmd.Flags().GetStringSlice("actual")
		l, err := env.Leads.RecordOutcome(ctx, args[0], lead.OutcomeRequest{
			Outcome:        model.Outcome(strings.ToLower(args[1])),
			Notes:          notes,
			ActualProducts: actual,
		})
		if err != nil {
			return eris.Wrap(err, "leads outcome")
		}
		if err := env.Pusher.SyncOutcome(ctx, *l); err != nil {
			zap.L().Warn("sync outcome to salesforce", zap.String("lead_id", l.ID), zap.Error(err))
		}
		fmt.Printf("Recorded %s for %s.\n", l.Outcome, l.Name)
		return nil
	},
}

// -- leads delete --

var leadsDeleteCmd = &cobra.Command{
	Use:   "delete <lead-id>",
	Short: "Delete one lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		remaining, err := env.Leads.Delete(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "leads delete")
		}
		fmt.Printf("Deleted. %d leads remaining.\n", remaining)
		return nil
	},
}

// -- leads clear --

var leadsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every lead",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return eris.New("leads clear: pass --yes to delete every lead")
		}
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Leads.DeleteAll(ctx)
		if err != nil {
			return eris.Wrap(err, "leads clear")
		}
		fmt.Printf("Deleted %d leads.\n", n)
		return nil
	},
}

// resolvePicks maps SKUs or product names to catalog entries. Unknown values
// are kept as free-text names.
func resolvePicks(cat *catalog.Catalog, values []string) ([]model.ProductPick, error) {
	picks := make([]model.ProductPick, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if p, ok := cat.Lookup(v); ok {
			picks = append(picks, model.ProductPick{SKU: p.SKU, Name: p.Name})
			continue
		}
		picks = append(picks, model.ProductPick{Name: v})
	}
	if len(picks) == 0 {
		return nil, eris.New("no products given")
	}
	return picks, nil
}

func init() {
	leadsListCmd.Flags().Bool("graduated", false, "only graduated (true) or pending (false) leads")
	leadsListCmd.Flags().Bool("json", false, "print as JSON")

	leadsGraduateCmd.Flags().String("notes", "", "correction notes")
	leadsGraduateCmd.Flags().StringSlice("products", nil, "final product SKUs or names (default keep current)")

	leadsOutcomeCmd.Flags().String("notes", "", "outcome notes")
	leadsOutcomeCmd.Flags().StringSlice("actual", nil, "products the restaurant actually needed")

	leadsClearCmd.Flags().Bool("yes", false, "confirm deleting every lead")

	leadsCmd.AddCommand(leadsListCmd, leadsGraduateCmd, leadsGraduateAllCmd, leadsOutcomeCmd, leadsDeleteCmd, leadsClearCmd)
	rootCmd.AddCommand(leadsCmd)
}

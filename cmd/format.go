package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sells-group/suplook/internal/model"
	"github.com/sells-group/suplook/internal/pipeline"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatLeadsList writes a tabular summary of leads.
func formatLeadsList(w io.Writer, leads []model.Lead) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTIER\tCUISINE\tSTATUS\tOUTCOME\tPRODUCTS")
	for _, l := range leads {
		status := "pending"
		if l.Graduated {
			status = "graduated"
		}
		outcome := string(l.Outcome)
		if outcome == "" {
			outcome = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			shortID(l.ID),
			truncate(l.Name, 30),
			l.Tier,
			l.Cuisine,
			status,
			outcome,
			truncate(strings.Join(model.ProductNames(l.Products), ", "), 50),
		)
	}
	tw.Flush() //nolint:errcheck
}

// formatBatchSummary writes tier counts and per-lead errors for a batch.
func formatBatchSummary(w io.Writer, res *pipeline.BatchResult) {
	fmt.Fprintf(w, "Batch %s: %d leads (tier 1: %d, tier 2: %d, tier 3: %d)\n",
		res.BatchID, res.Total, res.Tier1, res.Tier2, res.Tier3)
	for _, l := range res.Leads {
		if l.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", l.Name, l.Error)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

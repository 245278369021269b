package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/suplook/internal/discovery"
	"github.com/sells-group/suplook/internal/pipeline"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a file of restaurant stubs and store the leads",
	Long:  "Loads restaurant stubs from a CSV or JSON file, runs the photo hunt and classification for each, and stores the resulting leads for review.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input, _ := cmd.Flags().GetString("input")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		batchID, _ := cmd.Flags().GetString("batch-id")
		asJSON, _ := cmd.Flags().GetBool("json")

		stubs, err := pipeline.LoadRestaurants(input)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Runner.RunBatch(ctx, pipeline.BatchRequest{
			Restaurants: stubs,
			BatchID:     batchID,
			BatchSize:   batchSize,
		})
		if err != nil {
			return eris.Wrap(err, "enrich")
		}
		if asJSON {
			return printJSON(os.Stdout, res)
		}
		formatBatchSummary(os.Stdout, res)
		return nil
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Discover restaurants by zip code and enrich them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		zips, _ := cmd.Flags().GetStringSlice("zip")
		cuisine, _ := cmd.Flags().GetString("cuisine")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		shuffle, _ := cmd.Flags().GetBool("shuffle")
		asJSON, _ := cmd.Flags().GetBool("json")

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Finder == nil {
			return eris.Wrap(discovery.ErrMapProviderDisabled, "scrape")
		}
		found, err := env.Finder.Find(ctx, discovery.Query{
			ZipCodes:  zips,
			Cuisine:   strings.TrimSpace(cuisine),
			BatchSize: batchSize,
			Shuffle:   shuffle,
		})
		if err != nil {
			return eris.Wrap(err, "scrape")
		}
		if len(found) == 0 {
			fmt.Fprintln(os.Stderr, "No restaurants found.")
			return nil
		}

		res, err := env.Runner.RunBatch(ctx, pipeline.BatchRequest{Restaurants: found, BatchSize: len(found)})
		if err != nil {
			return eris.Wrap(err, "scrape")
		}
		if asJSON {
			return printJSON(os.Stdout, res)
		}
		formatBatchSummary(os.Stdout, res)
		return nil
	},
}

func init() {
	enrichCmd.Flags().String("input", "", "CSV or JSON file of restaurant stubs")
	enrichCmd.Flags().Int("batch-size", 0, "number of stubs to enrich (default pipeline.default_batch_size, capped by pipeline.max_batch_size)")
	enrichCmd.Flags().String("batch-id", "", "batch id (default generated)")
	enrichCmd.Flags().Bool("json", false, "print the full batch result as JSON")
	_ = enrichCmd.MarkFlagRequired("input")

	scrapeCmd.Flags().StringSlice("zip", nil, "zip codes to search (repeatable or comma-separated)")
	scrapeCmd.Flags().String("cuisine", "", "cuisine keyword for the search (default restaurant)")
	scrapeCmd.Flags().Int("batch-size", 10, "maximum restaurants to enrich")
	scrapeCmd.Flags().Bool("shuffle", false, "shuffle results before capping")
	scrapeCmd.Flags().Bool("json", false, "print the full batch result as JSON")
	_ = scrapeCmd.MarkFlagRequired("zip")

	rootCmd.AddCommand(enrichCmd, scrapeCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Inspect or reset learned product corrections",
}

var correctionsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the correction indices as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()
		return printJSON(os.Stdout, env.Corrections.Snapshot())
	},
}

var correctionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset every correction index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return eris.New("corrections clear: pass --yes to reset every correction")
		}
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Corrections.Clear(ctx); err != nil {
			return eris.Wrap(err, "corrections clear")
		}
		fmt.Println("Corrections cleared.")
		return nil
	},
}

func init() {
	correctionsClearCmd.Flags().Bool("yes", false, "confirm the reset")
	correctionsCmd.AddCommand(correctionsShowCmd, correctionsClearCmd)
	rootCmd.AddCommand(correctionsCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a random password",
	Long: `Generate prints a random alphanumeric password whose length lies
within the bounds in config.toml. Nothing is stored.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	pw, err := svc.GeneratePassword(commandContext())
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"password": pw,
		})
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), pw)
	return nil
}

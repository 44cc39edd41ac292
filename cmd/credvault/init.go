package main

import (
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault in the work directory",
	Long: `Init writes config.toml with the default generation policy
(12 to 20 characters) and prepares record storage.

It fails if the vault already exists.`,
	Example: `  credvault init
  credvault init --work-dir ~/.vault`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := svc.Initialize(commandContext()); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":  true,
			"work_dir": cfg.Storage.WorkDir,
		})
	} else {
		printSuccess("Initialized vault in %s", cfg.Storage.WorkDir)
	}

	return nil
}

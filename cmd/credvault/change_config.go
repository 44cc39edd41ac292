package main

import (
	"github.com/spf13/cobra"
)

var changeConfigCmd = &cobra.Command{
	Use:   "change-config",
	Short: "Set the generated password length bounds",
	Long: `Change-config rewrites both bounds in config.toml.
The maximum must not be below the minimum.`,
	Example: `  credvault change-config --minimum 16 --maximum 32`,
	Args:    cobra.NoArgs,
	RunE:    runChangeConfig,
}

var (
	changeMinimum uint32
	changeMaximum uint32
)

func init() {
	rootCmd.AddCommand(changeConfigCmd)

	changeConfigCmd.Flags().Uint32Var(&changeMinimum, "minimum", 0,
		"Minimum password length (required)")
	changeConfigCmd.Flags().Uint32Var(&changeMaximum, "maximum", 0,
		"Maximum password length (required)")

	_ = changeConfigCmd.MarkFlagRequired("minimum")
	_ = changeConfigCmd.MarkFlagRequired("maximum")
}

func runChangeConfig(cmd *cobra.Command, args []string) error {
	p, err := svc.ChangePolicy(commandContext(), changeMinimum, changeMaximum)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"policy":  p,
		})
	} else {
		printSuccess("Passwords will be %d to %d characters", p.MinLength, p.MaxLength)
	}

	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a new credential",
	Long: `Add encrypts the password and stores it with the username under
the given identifier. Existing identifiers are never overwritten.`,
	Example: `  credvault add -i github -u alice
  credvault add -i github -u alice -p "$(credvault generate)"`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var (
	addIdentifier string
	addUsername   string
	addPassword   string
)

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVarP(&addIdentifier, "identifier", "i", "",
		"Record identifier (required)")
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "",
		"Username stored in clear (required, may be empty)")
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "",
		"Password (will prompt if not provided)")

	_ = addCmd.MarkFlagRequired("identifier")
	_ = addCmd.MarkFlagRequired("username")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("password") {
		var err error
		addPassword, err = promptSecret("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	if err := svc.Add(commandContext(), addIdentifier, addUsername, addPassword); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":    true,
			"identifier": addIdentifier,
		})
	} else {
		printSuccess("Stored %s", addIdentifier)
	}

	return nil
}

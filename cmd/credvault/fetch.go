package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Decrypt and print a credential",
	Long: `Fetch prints the stored username and password on two lines:

  username:<username>
  password:<password>`,
	Example: `  credvault fetch -i github
  credvault fetch -i github --json`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

var fetchIdentifier string

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchIdentifier, "identifier", "i", "",
		"Record identifier (required)")

	_ = fetchCmd.MarkFlagRequired("identifier")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cred, err := svc.Fetch(commandContext(), fetchIdentifier)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(cred)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), cred.String())
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/credvault/internal/services/gate"
	"github.com/TheMichaelB/credvault/internal/services/totp"
)

var hashPassphraseCmd = &cobra.Command{
	Use:   "hash-passphrase",
	Short: "Print a bcrypt hash for gate.passphrase_hash",
	Long: `Hash-passphrase prompts for a passphrase and prints its bcrypt hash,
so the config file need not hold the passphrase in clear.`,
	Annotations: map[string]string{skipGate: "true"},
	Args:        cobra.NoArgs,
	RunE:        runHashPassphrase,
}

var totpEnrollCmd = &cobra.Command{
	Use:   "totp-enroll",
	Short: "Create a TOTP secret for gate.totp_secret",
	Long: `Totp-enroll prints a new TOTP secret and its otpauth:// URL for an
authenticator app.`,
	Example:     `  credvault totp-enroll --account laptop`,
	Annotations: map[string]string{skipGate: "true"},
	Args:        cobra.NoArgs,
	RunE:        runTOTPEnroll,
}

var totpAccount string

func init() {
	rootCmd.AddCommand(hashPassphraseCmd)
	rootCmd.AddCommand(totpEnrollCmd)

	totpEnrollCmd.Flags().StringVar(&totpAccount, "account", "credvault",
		"Account name shown in the authenticator app")
}

func runHashPassphrase(cmd *cobra.Command, args []string) error {
	pw := passphrase
	if pw == "" {
		var err error
		pw, err = promptSecret("Passphrase to hash: ")
		if err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
	}

	hash, err := gate.HashPassphrase(pw)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"passphrase_hash": hash,
		})
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runTOTPEnroll(cmd *cobra.Command, args []string) error {
	secret, url, err := totp.NewSecret(totpAccount)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"totp_secret": secret,
			"url":         url,
		})
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), secret)
	printInfo("%s", url)
	return nil
}

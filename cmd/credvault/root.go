package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/credvault/internal/config"
	"github.com/TheMichaelB/credvault/internal/crypto"
	"github.com/TheMichaelB/credvault/internal/events"
	"github.com/TheMichaelB/credvault/internal/keys"
	"github.com/TheMichaelB/credvault/internal/models"
	"github.com/TheMichaelB/credvault/internal/services/gate"
	"github.com/TheMichaelB/credvault/internal/services/generator"
	"github.com/TheMichaelB/credvault/internal/services/vault"
	"github.com/TheMichaelB/credvault/internal/storage"
)

// skipGate marks commands that run without config or passphrase.
const skipGate = "skip-gate"

var (
	cfgFile    string
	passphrase string
	totpCode   string
	workDir    string
	jsonOutput bool

	cfg    *config.Config
	logger *events.Logger
	svc    *vault.Service
)

var rootCmd = &cobra.Command{
	Use:   "credvault",
	Short: "Local encrypted credential vault",
	Long: `credvault stores username/password pairs under identifiers you choose.
Passwords are encrypted at rest with AES-256-GCM-SIV.

Every command checks the configured passphrase first.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (default: credvault.yaml or ~/.config/credvault/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "P", "",
		"Vault passphrase (will prompt if not provided)")
	rootCmd.PersistentFlags().StringVar(&totpCode, "totp", "",
		"TOTP code, when the gate has a TOTP secret")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "",
		"Directory holding config.toml and the records")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print results as JSON")
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipGate] == "true" {
		return nil
	}

	loader := config.NewLoader(cfgFile)
	loaded, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	if workDir != "" {
		cfg.Storage.WorkDir = workDir
	}
	if !cfg.Log.Color || jsonOutput {
		color.NoColor = true
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	events.SetDefault(logger)

	if used := loader.ConfigFileUsed(); used != "" {
		logger.WithField("file", used).Debug("Loaded config")
	}

	if err := checkGate(cfg.Gate); err != nil {
		return err
	}

	provider, err := keys.FromConfig(cfg.Key)
	if err != nil {
		return fmt.Errorf("key provider: %w", err)
	}

	records, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}

	svc = vault.NewService(
		config.NewPolicyStore(cfg.PolicyPath()),
		records,
		crypto.NewEngine(provider),
		generator.New(),
		logger,
	)

	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if svc != nil {
		return svc.Close()
	}
	return nil
}

func checkGate(gc config.GateConfig) error {
	g, err := gate.New(gc, logger)
	if err != nil {
		return err
	}

	if passphrase == "" {
		passphrase, err = promptSecret("Passphrase: ")
		if err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
	}

	if g.RequiresTOTP() && totpCode == "" {
		totpCode, err = promptSecret("TOTP code: ")
		if err != nil {
			return fmt.Errorf("read totp code: %w", err)
		}
	}

	return g.Check(passphrase, totpCode)
}

func commandContext() context.Context {
	return events.WithLogger(context.Background(), logger)
}

// promptSecret reads a line from the terminal without echo.
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; pass the value as a flag")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", err
	}
	return string(secret), nil
}

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(os.Stderr, format+"\n", args...)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// reportError prints err in the selected output mode.
func reportError(err error) {
	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": false,
			"code":    models.Code(err),
			"error":   err.Error(),
		})
		return
	}
	printError("%v", err)
}

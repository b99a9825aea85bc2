package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"agri-sentinel/internal/app"
	"agri-sentinel/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agri",
	Short: "Offline-first agricultural finance and logistics ledger",
}

// newApp reads the config and creates an App. The caller must close it.
// operation identifies the CLI command being run (e.g. "Disburse", "Reserve").
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	opts := app.Options{Verbose: verbose}
	if verbose {
		opts.Echo = os.Stderr
	}

	a, err := app.New(cmd.Context(), cfg, operation, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withApp opens an App for operation, runs fn and closes the App. When fn
// fails the operation is marked failed, so no snapshot follows it.
func withApp(cmd *cobra.Command, operation string, fn func(ctx context.Context, a *app.App) error) (err error) {
	a, err := newApp(cmd, operation)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := fn(cmd.Context(), a); err != nil {
		a.Fail(err)
		return err
	}
	return nil
}

// readPassphrase prompts on stderr and reads without echo from a terminal,
// or one line from stdin otherwise.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(dossiersCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(assetsCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(fleetCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(portfolioCmd)
}

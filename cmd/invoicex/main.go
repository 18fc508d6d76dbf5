package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if err := common.LoadDotEnv(); err != nil {
		printError("Error: reading .env: %v\n", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()

	if err := newRootCmd(cfg).Execute(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *common.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "invoicex",
		Short:         "Extract structured invoice records from vendor PDFs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := common.NewLogger(cmd.ErrOrStderr(), cfg.Logging)
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "debug | info | warn | error")
	root.PersistentFlags().StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "text | json")
	root.PersistentFlags().StringVar(&cfg.Profiles.Dir, "profiles", cfg.Profiles.Dir, "directory of extra vendor profiles (*.yaml)")

	root.AddCommand(
		newRunCmd(cfg),
		newValidateCmd(cfg),
		newProfilesCmd(cfg),
		newLedgerCmd(cfg),
	)
	return root
}

package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

func newLedgerCmd(cfg *common.Config) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List the extract jobs of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Ledger.DSN == "" {
				return common.NewAppError("CONFIG_ERROR", "--dsn or LEDGER_DSN is required", common.ErrInvalidInput)
			}
			ctx := cmd.Context()
			ledger, err := repository.Open(ctx, ledgerConfig(cfg.Ledger), slog.Default())
			if err != nil {
				return err
			}
			defer ledger.Close()

			jobs, err := ledger.Jobs.ListByRun(ctx, runID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tSTATUS\tFILE\tFIELDS\tMISSING\tERROR")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					j.StartedAt.Format(time.RFC3339), j.Status, j.SourcePath, j.FieldsTotal, j.FieldsMissing, j.ErrorMessage)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&cfg.Ledger.DSN, "dsn", cfg.Ledger.DSN, "run ledger DSN")
	cmd.Flags().StringVar(&runID, "run", "", "run ID printed by invoicex run")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

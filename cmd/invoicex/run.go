package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/profiles"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

func newRunCmd(cfg *common.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every matching PDF of a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runBatch(ctx, cmd, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Batch.InputDir, "dir", cfg.Batch.InputDir, "directory of input PDFs")
	f.StringVar(&cfg.Batch.Prefix, "prefix", cfg.Batch.Prefix, "case-insensitive filename prefix (empty selects every PDF)")
	f.StringVar(&cfg.Batch.Vendor, "vendor", cfg.Batch.Vendor, "force a profile by name")
	f.StringVar(&cfg.Batch.OutputDir, "out", cfg.Batch.OutputDir, "output root for text/, json/ and validation/")
	f.StringVar(&cfg.Batch.SummaryXLSX, "xlsx", cfg.Batch.SummaryXLSX, "write a summary workbook to this path")
	f.StringVar(&cfg.Extract.Backend, "backend", cfg.Extract.Backend, "native | pdftotext")
	f.StringVar(&cfg.Extract.Segmenter, "segmenter", cfg.Extract.Segmenter, "columns | page")
	f.StringVar(&cfg.Ledger.DSN, "ledger", cfg.Ledger.DSN, "run ledger DSN (sqlite path or postgres:// URL)")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, cfg *common.Config) error {
	logger := slog.Default()

	reg, err := profiles.Load(cfg.Profiles.Dir, logger)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	segment, err := extract.SegmenterByName(cfg.Extract.Segmenter)
	if err != nil {
		return err
	}
	x := extract.NewExtractor(extract.Config{
		Backend:      cfg.Extract.Backend,
		Pdftotext:    cfg.Extract.Pdftotext,
		FooterMargin: cfg.Extract.FooterMargin,
		NoImageText:  cfg.Extract.NoImageText,
		MaxPages:     cfg.Extract.MaxPages,
	}, nil, segment, logger)

	var ledger *repository.Ledger
	if cfg.Ledger.DSN != "" {
		ledger, err = repository.Open(ctx, ledgerConfig(cfg.Ledger), logger)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer ledger.Close()
	}

	text := pipeline.NewTextStage(x, logger)
	text.Timeout = cfg.Extract.Timeout
	proc := pipeline.NewProcessor(logger, text, pipeline.NewParseStage(reg, cfg.Batch.Vendor, logger), ledger, cfg.Batch.OutputDir)

	sum, err := pipeline.NewBatch(proc, cfg.Batch.SummaryXLSX, logger).Run(ctx, cfg.Batch.InputDir, cfg.Batch.Prefix)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d matched, %d succeeded, %d failed in %s\n",
		sum.RunID, sum.Matched, sum.Succeeded, sum.Failed, sum.Duration.Round(time.Millisecond))
	return nil
}

func ledgerConfig(c common.LedgerConfig) repository.Config {
	return repository.Config{
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}
}

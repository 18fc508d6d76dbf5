package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
)

// Summary is the outcome of a batch run.
type Summary struct {
	RunID     string
	Scanned   int
	Matched   int
	Succeeded int
	Failed    int
	Results   []DocumentResult
	Duration  time.Duration
}

// Batch processes every matching PDF of a directory, one after another.
type Batch struct {
	Processor *Processor
	Logger    *slog.Logger
	// SummaryXLSX, when set, is where the summary workbook is written.
	SummaryXLSX string
}

func NewBatch(proc *Processor, summaryXLSX string, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{Processor: proc, Logger: logger, SummaryXLSX: summaryXLSX}
}

// Run processes the PDFs in dir whose names start with prefix. A failing document is logged
// and counted; only an unreadable directory or a cancelled context ends the run early.
func (b *Batch) Run(ctx context.Context, dir, prefix string) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: b.Processor.RunID}
	ctx = common.WithRunID(ctx, sum.RunID)

	inputs, stats, err := ingest.ListPDFs(dir, prefix)
	if err != nil {
		b.Logger.Error("batch.list.failed", "dir", dir, "error", err)
		return sum, err
	}
	sum.Scanned, sum.Matched = int(stats.Scanned), int(stats.Matched)
	b.Logger.Info("batch.start", "dir", dir, "prefix", prefix, "documents", len(inputs), "run_id", sum.RunID)

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, err
		}
		res, err := b.Processor.Process(ctx, in.Path)
		if err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}
		sum.Results = append(sum.Results, res)
	}
	sum.Duration = time.Since(start)

	if b.SummaryXLSX != "" {
		if err := export.WriteSummaryXLSX(b.SummaryXLSX, summaryRows(sum.Results), b.Logger); err != nil {
			b.Logger.Error("export.xlsx.failed", "path", b.SummaryXLSX, "error", err)
		}
	}
	b.Logger.Info("batch.done",
		"matched", sum.Matched,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"elapsed_ms", sum.Duration.Milliseconds(),
	)
	return sum, nil
}

func summaryRows(results []DocumentResult) []export.DocumentRow {
	rows := make([]export.DocumentRow, 0, len(results))
	for _, r := range results {
		row := export.DocumentRow{
			File:       filepath.Base(r.Path),
			Vendor:     r.Vendor,
			Status:     string(r.Status),
			Pages:      r.Pages,
			Fields:     r.Fields,
			Missing:    len(r.NotFound),
			Confidence: r.Confidence,
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		for _, e := range r.NotFound {
			row.NotFound = append(row.NotFound, export.MissingValue{Path: e.Path, Value: e.Value})
		}
		rows = append(rows, row)
	}
	return rows
}

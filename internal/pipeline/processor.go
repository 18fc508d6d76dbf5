// Package pipeline runs documents through text extraction, field extraction and validation.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
	"github.com/joseph-ayodele/invoice-extractor/internal/validate"
)

// DocumentResult summarizes one processed document.
type DocumentResult struct {
	Path       string
	Base       string
	Vendor     string
	Status     constants.JobStatus
	TextPath   string
	JSONPath   string
	ReportPath string
	Pages      int
	TextBytes  int
	Confidence float32
	Warnings   []string
	Fields     int
	NotFound   []validate.Entry
	RuleErrors int
	ShapeError string
	Err        error
	Duration   time.Duration
}

// Processor coordinates text extraction then field extraction for one document.
type Processor struct {
	Logger *slog.Logger
	Text   *TextStage
	Parse  *ParseStage
	Ledger *repository.Ledger // optional
	// OutputDir holds the text/, json/ and validation/ directories.
	OutputDir string
	RunID     string
}

func NewProcessor(logger *slog.Logger, text *TextStage, parse *ParseStage, ledger *repository.Ledger, outputDir string) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:    logger,
		Text:      text,
		Parse:     parse,
		Ledger:    ledger,
		OutputDir: outputDir,
		RunID:     uuid.NewString(),
	}
}

// Process writes the output triple of pdfPath. Any failure, including a panic, is returned as
// an error and recorded on the result; outputs written before the failure are left in place.
func (p *Processor) Process(ctx context.Context, pdfPath string) (res DocumentResult, err error) {
	start := time.Now()
	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	res = DocumentResult{Path: pdfPath, Base: base, Status: constants.JobStatusRunning}
	textDir, jsonDir, reportDir := common.OutputDirs(p.OutputDir)

	vendor := p.Parse.Vendor
	if vendor == "" {
		if prof, ok := p.Parse.Registry.ForFile(pdfPath); ok {
			vendor = prof.Name
		}
	}
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = p.RunID
	}
	ctx = common.WithDocument(ctx, base)
	t := &tracker{ledger: p.Ledger, runID: runID, log: p.Logger}

	defer func() {
		if r := recover(); r != nil {
			err = common.RecoverError(r)
		}
		res.Duration = time.Since(start)
		if err != nil {
			res.Status, res.Err = constants.JobStatusFailed, err
			t.fail(ctx, err)
			p.Logger.Error("processor.document.failed", "path", pdfPath, "error", err, "elapsed_ms", res.Duration.Milliseconds())
		}
	}()
	t.start(ctx, pdfPath, vendor)

	// 1) text -> text/<base>.txt
	txt, err := p.Text.Run(ctx, pdfPath, filepath.Join(textDir, base+constants.ExtText))
	if err != nil {
		return res, err
	}
	res.Status = constants.JobStatusTextOK
	res.TextPath, res.Pages, res.TextBytes = txt.TextPath, txt.Pages, len(txt.Text)
	res.Confidence, res.Warnings = txt.Confidence, txt.Warnings
	t.advance(ctx, constants.JobStatusTextOK)

	// 2) fields -> json/<base>.json, report -> validation/<base>.txt
	out, err := p.Parse.Run(pdfPath, base, txt.Text, jsonDir, reportDir)
	if out.Profile != nil {
		res.Vendor = out.Profile.Name
	}
	if err != nil {
		return res, common.WrapError(err, "parse")
	}
	t.advance(ctx, constants.JobStatusParsed)
	res.Status = constants.JobStatusValidated
	res.JSONPath, res.ReportPath = out.JSONPath, out.ReportPath
	res.Fields, res.NotFound = len(out.Report.Entries), out.Report.NotFound()
	res.RuleErrors, res.ShapeError = len(out.RuleErrors), out.ShapeError

	t.succeed(ctx, repository.JobOutcome{
		TextBytes:     int64(res.TextBytes),
		Confidence:    res.Confidence,
		FieldsTotal:   res.Fields,
		FieldsMissing: len(res.NotFound),
		ShapeError:    res.ShapeError,
	})
	res.Duration = time.Since(start)
	p.Logger.Info("processor.document.ok",
		"path", pdfPath,
		"vendor", res.Vendor,
		"pages", res.Pages,
		"fields", res.Fields,
		"missing", len(res.NotFound),
		"rule_errors", res.RuleErrors,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

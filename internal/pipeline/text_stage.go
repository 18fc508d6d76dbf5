package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

// TextStage turns a PDF into its persisted text file.
type TextStage struct {
	Extractor *extract.Extractor
	Logger    *slog.Logger
	// Timeout bounds one document's extraction; 0 means no limit.
	Timeout time.Duration
}

func NewTextStage(x *extract.Extractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{Extractor: x, Logger: logger}
}

// Run extracts pdfPath into txtPath and returns the text as read back from disk.
func (s *TextStage) Run(ctx context.Context, pdfPath, txtPath string) (extract.Result, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	res, err := s.Extractor.Extract(ctx, pdfPath, txtPath)
	if err != nil {
		return res, fmt.Errorf("extract text: %w", err)
	}
	if len(res.Warnings) > 0 {
		s.Logger.Warn("text extracted with skipped regions", "path", pdfPath, "warnings", len(res.Warnings))
	}
	return res, nil
}

package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

type Config struct {
	Backend      string  // BackendNative (default) or BackendPdftotext
	Pdftotext    string  // binary name or absolute path; if empty -> "pdftotext"
	FooterMargin float64 // default 50
	NoImageText  bool
	MaxPages     int // 0 = no limit
}

func (c Config) segment() SegmentConfig {
	return SegmentConfig{FooterMargin: c.FooterMargin, NoImageText: c.NoImageText}
}

type Extractor struct {
	cfg     Config
	open    Opener
	segment Segmenter
	logger  *slog.Logger
}

// NewExtractor wires a backend and a segmenter. A nil open picks the backend named in cfg; a
// nil segment uses FullPage.
func NewExtractor(cfg Config, open Opener, segment Segmenter, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FooterMargin < 0 {
		cfg.FooterMargin = 0
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendNative
	}
	if open == nil {
		open = OpenerByName(cfg.Backend, cfg.Pdftotext, logger)
	}
	if segment == nil {
		segment = FullPage
	}
	return &Extractor{cfg: cfg, open: open, segment: segment, logger: logger}
}

// OpenerByName maps a backend name to its Opener. Unknown names fall back to the native backend.
func OpenerByName(name, pdftotext string, logger *slog.Logger) Opener {
	if strings.EqualFold(name, BackendPdftotext) {
		return NewPdftotextOpener(pdftotext, nil, logger)
	}
	return OpenNative
}

// Extract reads every region of every page of pdfPath, writes the concatenated text to txtPath,
// and returns the text as read back from disk.
func (e *Extractor) Extract(ctx context.Context, pdfPath, txtPath string) (Result, error) {
	start := time.Now()
	res := Result{TextPath: txtPath, Backend: e.cfg.Backend}
	e.logger.Debug("starting text extraction", "path", pdfPath, "backend", e.cfg.Backend)

	doc, err := e.open(ctx, pdfPath)
	if err != nil {
		res.Duration = time.Since(start)
		return res, common.NewAppError("EXTRACT_OPEN", "could not open document", errors.Join(common.ErrExtraction, err))
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			e.logger.Warn("close document", "path", pdfPath, "error", cerr)
		}
	}()

	pages := doc.NumPages()
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		pages = e.cfg.MaxPages
	}

	var buf strings.Builder
	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		page, err := doc.Page(n)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", n, err))
			e.logger.Warn("page skipped", "path", pdfPath, "page", n, "error", err)
			continue
		}
		res.Pages++

		regions, err := e.regions(page)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("page %d segmentation: %v", n, err))
			e.logger.Warn("segmentation failed, using full page", "path", pdfPath, "page", n, "error", err)
			regions = []Rect{page.Bounds()}
		}

		for i, r := range regions {
			txt, err := e.regionText(page, r)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("page %d region %d: %v", n, i+1, err))
				e.logger.Warn("region skipped", "path", pdfPath, "page", n, "region", i+1, "error", err)
				continue
			}
			buf.WriteString(txt)
			buf.WriteString("\n\n")
			res.Regions++
		}
	}

	if err := os.MkdirAll(filepath.Dir(txtPath), 0o755); err != nil {
		res.Duration = time.Since(start)
		return res, fmt.Errorf("create text dir: %w", err)
	}
	if err := os.WriteFile(txtPath, []byte(buf.String()), 0o644); err != nil {
		res.Duration = time.Since(start)
		return res, fmt.Errorf("write text file: %w", err)
	}
	data, err := os.ReadFile(txtPath)
	if err != nil {
		res.Duration = time.Since(start)
		return res, fmt.Errorf("read back text file: %w", err)
	}

	res.Text = string(data)
	res.Confidence = heuristicConfidence(res.Text)
	res.Duration = time.Since(start)
	e.logger.Info("text extracted",
		"path", pdfPath,
		"pages", res.Pages,
		"regions", res.Regions,
		"bytes", len(data),
		"warnings", len(res.Warnings),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) regions(page Page) (regions []Rect, err error) {
	defer func() {
		if r := recover(); r != nil {
			regions, err = nil, common.RecoverError(r)
		}
	}()
	regions, err = e.segment(page, e.cfg.segment())
	if err == nil && len(regions) == 0 {
		err = errors.New("no regions")
	}
	return regions, err
}

func (e *Extractor) regionText(page Page, r Rect) (txt string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			txt, err = "", common.RecoverError(rec)
		}
	}()
	return RegionText(page, r, e.cfg.segment())
}

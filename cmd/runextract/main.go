package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/extract"
)

func main() {
	_ = common.LoadDotEnv()
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Logging)
	slog.SetDefault(logger)

	if len(os.Args) < 2 || len(os.Args) > 3 {
		logger.Error("usage", "cmd", "runextract <file.pdf> [out.txt]")
		os.Exit(2)
	}
	pdfPath := os.Args[1]
	txtPath := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + constants.ExtText
	if len(os.Args) == 3 {
		txtPath = os.Args[2]
	}

	segment, err := extract.SegmenterByName(cfg.Extract.Segmenter)
	if err != nil {
		logger.Error("invalid segmenter", "error", err)
		os.Exit(2)
	}

	ctx := context.Background()
	if cfg.Extract.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Extract.Timeout)
		defer cancel()
	}

	x := extract.NewExtractor(extract.Config{
		Backend:      cfg.Extract.Backend,
		Pdftotext:    cfg.Extract.Pdftotext,
		FooterMargin: cfg.Extract.FooterMargin,
		NoImageText:  cfg.Extract.NoImageText,
		MaxPages:     cfg.Extract.MaxPages,
	}, nil, segment, logger)

	start := time.Now()
	res, err := x.Extract(ctx, pdfPath, txtPath)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", pdfPath, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"out", res.TextPath,
		"backend", res.Backend,
		"pages", res.Pages,
		"regions", res.Regions,
		"bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", dur.Milliseconds(),
	)
}

package common

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"INVOICE_INPUT_DIR", "INVOICE_BACKEND", "INVOICE_FOOTER_MARGIN", "LEDGER_DSN", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	assert.Equal(t, "./allinvoices", cfg.Batch.InputDir)
	assert.Equal(t, "native", cfg.Extract.Backend)
	assert.Equal(t, 50.0, cfg.Extract.FooterMargin)
	assert.True(t, cfg.Extract.NoImageText)
	assert.Empty(t, cfg.Ledger.DSN)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("INVOICE_INPUT_DIR", "/data/in")
	t.Setenv("INVOICE_OUTPUT_DIR", "/data/out")
	t.Setenv("INVOICE_SEGMENTER", "page")
	t.Setenv("INVOICE_FOOTER_MARGIN", "72.5")
	t.Setenv("INVOICE_NO_IMAGE_TEXT", "false")
	t.Setenv("INVOICE_MAX_PAGES", "3")
	t.Setenv("LEDGER_MAX_CONNS", "9")
	t.Setenv("LEDGER_DIAL_TIMEOUT", "750ms")
	t.Setenv("INVOICE_EXTRACT_TIMEOUT", "not-a-duration")

	cfg := LoadConfig()
	assert.Equal(t, "/data/in", cfg.Batch.InputDir)
	assert.Equal(t, "page", cfg.Extract.Segmenter)
	assert.Equal(t, 72.5, cfg.Extract.FooterMargin)
	assert.False(t, cfg.Extract.NoImageText)
	assert.Equal(t, 3, cfg.Extract.MaxPages)
	assert.Equal(t, int32(9), cfg.Ledger.MaxConns)
	assert.Equal(t, 750*time.Millisecond, cfg.Ledger.DialTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Extract.Timeout)

	text, json, validation := OutputDirs(cfg.Batch.OutputDir)
	assert.Equal(t, filepath.Join("/data/out", "text"), text)
	assert.Equal(t, filepath.Join("/data/out", "json"), json)
	assert.Equal(t, filepath.Join("/data/out", "validation"), validation)
}

func TestConfigValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.Extract.Backend = "tesseract"
	cfg.Extract.FooterMargin = -1
	cfg.Batch.InputDir = " "

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	var app *AppError
	require.True(t, errors.As(err, &app))
	assert.Equal(t, "CONFIG_ERROR", app.Code)
	assert.Contains(t, app.Message, "INVOICE_BACKEND")
	assert.Contains(t, app.Message, "INVOICE_FOOTER_MARGIN")
	assert.Contains(t, app.Message, "INVOICE_INPUT_DIR")
}

func TestRecoverError(t *testing.T) {
	assert.NoError(t, RecoverError(nil))

	err := RecoverError("boom")
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "boom")

	cause := errors.New("index out of range")
	err = RecoverError(cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ignored"))
	err := WrapError(ErrNotFound, "load profile")
	assert.EqualError(t, err, "load profile: resource not found")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RunIDFromContext(ctx))
	ctx = WithDocument(WithRunID(ctx, "run-1"), "nu_1")
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Equal(t, "nu_1", DocumentFromContext(ctx))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LoggingConfig{Level: "warn", Format: "json"})
	log.Info("hidden")
	log.Warn("export.xlsx.failed", "path", "a.xlsx")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"export.xlsx.failed"`)

	buf.Reset()
	NewLogger(&buf, LoggingConfig{Level: "debug"}).Debug("shown", "page", 2)
	assert.Contains(t, buf.String(), "msg=shown page=2")
}

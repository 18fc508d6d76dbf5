package extract

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// Runner executes the pdftotext binary. Tests substitute a stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// maxLoggedStderr caps the pdftotext stderr kept in a log record.
const maxLoggedStderr = 4 << 10

// ExecRunner runs pdftotext through os/exec and logs one record per invocation.
type ExecRunner struct {
	logger *slog.Logger
}

func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	attrs := []any{
		"binary", name,
		"input", inputPath(args),
		"duration_ms", time.Since(start).Milliseconds(),
	}

	switch {
	case err == nil:
		r.logger.Debug("pdftotext finished", append(attrs, "stdout_bytes", out.Len())...)
	case ctx.Err() != nil:
		r.logger.Warn("pdftotext cancelled", append(attrs, "error", ctx.Err())...)
	default:
		r.logger.Error("pdftotext failed", append(attrs,
			"exit_code", exitCode(err),
			"error", err,
			"stderr", truncate(strings.TrimSpace(errb.String()), maxLoggedStderr),
		)...)
	}

	return out.Bytes(), errb.Bytes(), err
}

// inputPath picks the document argument: the last one that is neither a flag nor "-".
func inputPath(args []string) string {
	for i := len(args) - 1; i >= 0; i-- {
		if a := args[i]; a != "-" && !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}

// exitCode is -1 when the binary never ran (missing, not executable).
func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// truncate cuts s to at most max bytes without splitting a rune. Shared by the run log and
// the error returned to callers, which gets a shorter cap.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}

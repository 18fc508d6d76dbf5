package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func openMemory(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestOpenSQLite(t *testing.T) {
	l := openMemory(t)
	assert.Equal(t, "sqlite3", l.Dialect())
	assert.NoError(t, l.HealthCheck(context.Background(), time.Second))
	assert.False(t, IsPostgres(":memory:"))
	assert.True(t, IsPostgres("postgres://u:p@localhost:5432/ledger"))
}

func TestUpsertByHash(t *testing.T) {
	ctx := context.Background()
	l := openMemory(t)
	seen := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := l.Documents.GetByHash(ctx, "abc")
	assert.ErrorIs(t, err, common.ErrNotFound)

	first, dedup, err := l.Documents.UpsertByHash(ctx, "/in/nu_1.pdf", "abc", "nu", 1024, seen)
	require.NoError(t, err)
	assert.False(t, dedup)
	assert.NotEqual(t, uuid.Nil, first.ID)

	again, dedup, err := l.Documents.UpsertByHash(ctx, "/in/copy/nu_1.pdf", "abc", "nu", 1024, seen.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, dedup)
	assert.Equal(t, first.ID, again.ID)

	got, err := l.Documents.GetByHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "/in/copy/nu_1.pdf", got.SourcePath)
	assert.Equal(t, seen, got.FirstSeenAt)
	assert.Equal(t, seen.Add(time.Hour), got.LastSeenAt)
	assert.Equal(t, int64(1024), got.FileSize)
}

func TestExtractJobs(t *testing.T) {
	ctx := context.Background()
	l := openMemory(t)
	now := time.Now()

	okDoc, _, err := l.Documents.UpsertByHash(ctx, "/in/a.pdf", "h1", "sar", 10, now)
	require.NoError(t, err)
	badDoc, _, err := l.Documents.UpsertByHash(ctx, "/in/b.pdf", "h2", "sar", 10, now)
	require.NoError(t, err)

	ok, err := l.Jobs.Start(ctx, okDoc.ID, "run-1")
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusRunning, ok.Status)
	require.NoError(t, l.Jobs.Advance(ctx, ok.ID, constants.JobStatusTextOK))
	require.NoError(t, l.Jobs.FinishSuccess(ctx, ok.ID, JobOutcome{
		TextBytes: 812, Confidence: 0.75, FieldsTotal: 20, FieldsMissing: 2, ShapeError: "",
	}))

	bad, err := l.Jobs.Start(ctx, badDoc.ID, "run-1")
	require.NoError(t, err)
	require.NoError(t, l.Jobs.FinishFailure(ctx, bad.ID, "open pdf: malformed"))

	other, err := l.Jobs.Start(ctx, okDoc.ID, "run-2")
	require.NoError(t, err)

	jobs, err := l.Jobs.ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	byPath := map[string]ExtractJob{}
	for _, j := range jobs {
		byPath[j.SourcePath] = j
	}
	a := byPath["/in/a.pdf"]
	assert.Equal(t, ok.ID, a.ID)
	assert.Equal(t, constants.JobStatusValidated, a.Status)
	assert.Equal(t, int64(812), a.TextBytes)
	assert.InDelta(t, 0.75, a.Confidence, 1e-6)
	assert.Equal(t, 2, a.FieldsMissing)
	require.NotNil(t, a.FinishedAt)

	b := byPath["/in/b.pdf"]
	assert.Equal(t, constants.JobStatusFailed, b.Status)
	assert.Equal(t, "open pdf: malformed", b.ErrorMessage)

	jobs, err = l.Jobs.ListByRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, other.ID, jobs[0].ID)
	assert.Nil(t, jobs[0].FinishedAt)

	assert.ErrorIs(t, l.Jobs.FinishFailure(ctx, uuid.New(), "x"), common.ErrNotFound)
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/repository"
)

// tracker books one document into the run ledger. Every method is a no-op without a ledger;
// ledger failures are logged and never returned.
type tracker struct {
	ledger *repository.Ledger
	runID  string
	log    *slog.Logger
	jobID  uuid.UUID
}

func (t *tracker) start(ctx context.Context, path, vendor string) {
	if t.ledger == nil {
		return
	}
	hash, size, err := ingest.HashFile(path)
	if err != nil {
		t.log.Warn("ledger skipped: hash failed", "path", path, "error", err)
		return
	}
	doc, dedup, err := t.ledger.Documents.UpsertByHash(ctx, path, hash, vendor, size, time.Now())
	if err != nil {
		t.log.Warn("ledger skipped", "path", path, "error", err)
		return
	}
	if dedup {
		t.log.Debug("document already in ledger", "document", common.DocumentFromContext(ctx), "document_id", doc.ID)
	}
	job, err := t.ledger.Jobs.Start(ctx, doc.ID, t.runID)
	if err != nil {
		t.log.Warn("ledger skipped", "path", path, "error", err)
		return
	}
	t.jobID = job.ID
}

func (t *tracker) active() bool { return t.ledger != nil && t.jobID != uuid.Nil }

func (t *tracker) advance(ctx context.Context, status constants.JobStatus) {
	if !t.active() {
		return
	}
	if err := t.ledger.Jobs.Advance(ctx, t.jobID, status); err != nil {
		t.log.Warn("ledger update failed", "job_id", t.jobID, "status", status, "error", err)
	}
}

func (t *tracker) succeed(ctx context.Context, out repository.JobOutcome) {
	if !t.active() {
		return
	}
	_ = t.ledger.Jobs.FinishSuccess(ctx, t.jobID, out)
}

func (t *tracker) fail(ctx context.Context, err error) {
	if !t.active() {
		return
	}
	_ = t.ledger.Jobs.FinishFailure(ctx, t.jobID, err.Error())
}

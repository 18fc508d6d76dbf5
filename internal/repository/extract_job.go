package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ExtractJob is one processing attempt of a document within a run.
type ExtractJob struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	SourcePath    string
	RunID         string
	Status        constants.JobStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
	ErrorMessage  string
	TextBytes     int64
	Confidence    float64
	FieldsTotal   int
	FieldsMissing int
	ShapeError    string
}

// JobOutcome is what a successful job records.
type JobOutcome struct {
	TextBytes     int64
	Confidence    float32
	FieldsTotal   int
	FieldsMissing int
	ShapeError    string
}

type ExtractJobRepository interface {
	Start(ctx context.Context, documentID uuid.UUID, runID string) (*ExtractJob, error)
	// Advance moves a running job to an intermediate status.
	Advance(ctx context.Context, jobID uuid.UUID, status constants.JobStatus) error
	FinishSuccess(ctx context.Context, jobID uuid.UUID, out JobOutcome) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
	ListByRun(ctx context.Context, runID string) ([]ExtractJob, error)
}

type extractJobRepo struct {
	drv *entsql.Driver
	log *slog.Logger
}

func (r *extractJobRepo) Start(ctx context.Context, documentID uuid.UUID, runID string) (*ExtractJob, error) {
	job := &ExtractJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		RunID:      runID,
		Status:     constants.JobStatusRunning,
		StartedAt:  fromMillis(toMillis(time.Now())),
	}
	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert("extract_jobs").
		Columns("id", "document_id", "run_id", "status", "started_at").
		Values(job.ID.String(), documentID.String(), runID, string(job.Status), toMillis(job.StartedAt)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extract_job start failed", "document_id", documentID, "err", err)
		return nil, fmt.Errorf("insert extract job: %w", err)
	}
	r.log.Debug("extract_job started", "job_id", job.ID, "document_id", documentID, "run_id", runID)
	return job, nil
}

func (r *extractJobRepo) Advance(ctx context.Context, jobID uuid.UUID, status constants.JobStatus) error {
	return r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(status))
	})
}

func (r *extractJobRepo) FinishSuccess(ctx context.Context, jobID uuid.UUID, out JobOutcome) error {
	err := r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusValidated)).
			Set("finished_at", toMillis(time.Now())).
			Set("text_bytes", out.TextBytes).
			Set("confidence", float64(out.Confidence)).
			Set("fields_total", out.FieldsTotal).
			Set("fields_missing", out.FieldsMissing).
			Set("shape_error", out.ShapeError)
	})
	if err != nil {
		r.log.Error("extract_job finish(OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Debug("extract_job finished (VALIDATED)", "job_id", jobID, "fields", out.FieldsTotal, "missing", out.FieldsMissing)
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusFailed)).
			Set("finished_at", toMillis(time.Now())).
			Set("error_message", message)
	})
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func (r *extractJobRepo) update(ctx context.Context, jobID uuid.UUID, set func(*entsql.UpdateBuilder)) error {
	u := entsql.Dialect(r.drv.Dialect()).Update("extract_jobs")
	set(u)
	query, args := u.Where(entsql.EQ("id", jobID.String())).Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("update extract job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("extract job %s: %w", jobID, common.ErrNotFound)
	}
	return nil
}

func (r *extractJobRepo) ListByRun(ctx context.Context, runID string) ([]ExtractJob, error) {
	b := entsql.Dialect(r.drv.Dialect())
	// both tables aliased so C() matches the names the join renders
	j, d := b.Table("extract_jobs").As("j"), b.Table("documents").As("d")
	query, args := b.
		Select(
			j.C("id"), j.C("document_id"), d.C("source_path"), j.C("run_id"), j.C("status"),
			j.C("started_at"), j.C("finished_at"), j.C("error_message"), j.C("text_bytes"),
			j.C("confidence"), j.C("fields_total"), j.C("fields_missing"), j.C("shape_error"),
		).
		From(j).
		Join(d).On(j.C("document_id"), d.C("id")).
		Where(entsql.EQ(j.C("run_id"), runID)).
		OrderBy(j.C("started_at"), d.C("source_path")).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("list extract jobs: %w", err)
	}
	defer rows.Close()

	var out []ExtractJob
	for rows.Next() {
		var (
			job       ExtractJob
			id, docID string
			status    string
			started   int64
			finished  sql.NullInt64
		)
		if err := rows.Scan(&id, &docID, &job.SourcePath, &job.RunID, &status, &started, &finished,
			&job.ErrorMessage, &job.TextBytes, &job.Confidence, &job.FieldsTotal, &job.FieldsMissing, &job.ShapeError); err != nil {
			return nil, fmt.Errorf("scan extract job: %w", err)
		}
		var err error
		if job.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("job id %q: %w", id, err)
		}
		if job.DocumentID, err = uuid.Parse(docID); err != nil {
			return nil, fmt.Errorf("document id %q: %w", docID, err)
		}
		job.Status = constants.JobStatus(status)
		job.StartedAt = fromMillis(started)
		if finished.Valid {
			t := fromMillis(finished.Int64)
			job.FinishedAt = &t
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list extract jobs: %w", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Document is one distinct input file, keyed by content hash.
type Document struct {
	ID          uuid.UUID
	SourcePath  string
	ContentHash string
	Vendor      string
	FileSize    int64
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

type DocumentRepository interface {
	GetByHash(ctx context.Context, hash string) (*Document, error)
	// UpsertByHash records a sighting of the file. It reports true when the hash was already known,
	// in which case path, vendor and last-seen time are refreshed.
	UpsertByHash(ctx context.Context, sourcePath, hash, vendor string, size int64, seenAt time.Time) (*Document, bool, error)
}

type documentRepo struct {
	drv *entsql.Driver
	log *slog.Logger
}

var documentColumns = []string{"id", "source_path", "content_hash", "vendor", "file_size", "first_seen_at", "last_seen_at"}

func (r *documentRepo) GetByHash(ctx context.Context, hash string) (*Document, error) {
	b := entsql.Dialect(r.drv.Dialect())
	query, args := b.
		Select(documentColumns...).
		From(b.Table("documents")).
		Where(entsql.EQ("content_hash", hash)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query document: %w", err)
		}
		return nil, fmt.Errorf("document %s: %w", hash, common.ErrNotFound)
	}
	var (
		d           Document
		id          string
		first, last int64
	)
	if err := rows.Scan(&id, &d.SourcePath, &d.ContentHash, &d.Vendor, &d.FileSize, &first, &last); err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("document id %q: %w", id, err)
	}
	d.ID, d.FirstSeenAt, d.LastSeenAt = parsed, fromMillis(first), fromMillis(last)
	return &d, nil
}

func (r *documentRepo) UpsertByHash(ctx context.Context, sourcePath, hash, vendor string, size int64, seenAt time.Time) (*Document, bool, error) {
	existing, err := r.GetByHash(ctx, hash)
	switch {
	case err == nil:
		query, args := entsql.Dialect(r.drv.Dialect()).
			Update("documents").
			Set("source_path", sourcePath).
			Set("vendor", vendor).
			Set("last_seen_at", toMillis(seenAt)).
			Where(entsql.EQ("id", existing.ID.String())).
			Query()
		if err := r.drv.Exec(ctx, query, args, nil); err != nil {
			r.log.Error("document refresh failed", "hash", hash, "error", err)
			return nil, false, fmt.Errorf("update document: %w", err)
		}
		existing.SourcePath, existing.Vendor, existing.LastSeenAt = sourcePath, vendor, fromMillis(toMillis(seenAt))
		r.log.Debug("document seen again", "document_id", existing.ID, "path", sourcePath)
		return existing, true, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, false, err
	}

	d := &Document{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: hash,
		Vendor:      vendor,
		FileSize:    size,
		FirstSeenAt: fromMillis(toMillis(seenAt)),
		LastSeenAt:  fromMillis(toMillis(seenAt)),
	}
	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert("documents").
		Columns(documentColumns...).
		Values(d.ID.String(), d.SourcePath, d.ContentHash, d.Vendor, d.FileSize, toMillis(seenAt), toMillis(seenAt)).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("document insert failed", "path", sourcePath, "hash", hash, "error", err)
		return nil, false, fmt.Errorf("insert document: %w", err)
	}
	r.log.Info("document recorded", "document_id", d.ID, "path", sourcePath)
	return d, false, nil
}

package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one successful archive as stored in the ledger.
type Record struct {
	ID       string `json:"id"       example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
	Bucket   string `json:"bucket"   example:"archive"`
	Key      string `json:"suffix"   example:"images/a.png"`
	Source   string `json:"source"   example:"https://example.com/images/a.png"`
	Location string `json:"location" example:"https://cdn.example.com/archive/images/a.png"`

	ContentType string `json:"contentType,omitempty" example:"image/png"`
	// ContentLength is the announced size, -1 when the source sent none.
	ContentLength int64     `json:"contentLength" example:"1024"`
	Bytes         int64     `json:"bytes"         example:"1024"`
	Public        bool      `json:"public"        example:"true"`
	FetchedAt     time.Time `json:"fetchedAt"     example:"2026-02-27T14:48:34Z"`
	CreatedAt     time.Time `json:"createdAt"     example:"2026-02-27T14:48:35Z"`
}

// ListFilter narrows a ledger listing.
type ListFilter struct {
	// Key, when set, returns only records for that object key.
	Key   string
	Limit int
}

// Repository is the Postgres-backed Ledger.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new archive Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Record inserts one ledger row.
func (r *Repository) Record(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO archives
		   (id, bucket, object_key, source, location, content_type, content_length, bytes, public, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6::text, ''), NULLIF($7::bigint, -1), $8, $9, $10)`,
		rec.ID, rec.Bucket, rec.Key, rec.Source, rec.Location,
		rec.ContentType, rec.ContentLength, rec.Bytes, rec.Public, rec.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert archive record: %w", err)
	}
	return nil
}

// List returns the newest records first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id::text, bucket, object_key, source, location,
		        COALESCE(content_type, ''), COALESCE(content_length, -1),
		        bytes, public, fetched_at, created_at
		   FROM archives
		  WHERE ($1::text = '' OR object_key = $1)
		  ORDER BY created_at DESC
		  LIMIT $2`,
		f.Key, f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query archive records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(
			&rec.ID, &rec.Bucket, &rec.Key, &rec.Source, &rec.Location,
			&rec.ContentType, &rec.ContentLength,
			&rec.Bytes, &rec.Public, &rec.FetchedAt, &rec.CreatedAt,
		)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan archive records: %w", err)
	}
	return records, nil
}

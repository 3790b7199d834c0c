package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSourceNotFound is returned when no source is stored under an id.
var ErrSourceNotFound = errors.New("dataset source not found")

// StoredSource is one uploaded dataset as persisted in dataset_sources.
type StoredSource struct {
	DatasetID string
	Name      string
	Kind      string
	Content   []byte
	CreatedAt time.Time
}

// SourceRepository persists uploaded source bytes, keyed by content hash.
// Rows are written once and never updated.
type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Save stores src unless a source with the same id already exists. It
// reports whether a new row was written.
func (r *SourceRepository) Save(ctx context.Context, src StoredSource) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO dataset_sources (dataset_id, name, kind, size, content) VALUES (?, ?, ?, ?, ?)`,
		src.DatasetID, src.Name, src.Kind, len(src.Content), src.Content)
	if err != nil {
		return false, fmt.Errorf("error inserting dataset source %s: %w", src.DatasetID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected for dataset source %s: %w", src.DatasetID, err)
	}
	return n > 0, nil
}

// Get loads a stored source by id.
func (r *SourceRepository) Get(ctx context.Context, datasetID string) (StoredSource, error) {
	var src StoredSource
	var createdAt sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT dataset_id, name, kind, content, CAST(strftime('%s', created_at) AS INTEGER) FROM dataset_sources WHERE dataset_id = ?`,
		datasetID).Scan(&src.DatasetID, &src.Name, &src.Kind, &src.Content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredSource{}, ErrSourceNotFound
	}
	if err != nil {
		return StoredSource{}, fmt.Errorf("error querying dataset source %s: %w", datasetID, err)
	}
	if createdAt.Valid {
		src.CreatedAt = time.Unix(createdAt.Int64, 0).UTC()
	}
	return src, nil
}

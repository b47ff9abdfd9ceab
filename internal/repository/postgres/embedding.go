package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"minerva/internal/domain/options"
	"minerva/pkg/errors"
)

// Compile-time check
var _ options.VectorIndex = (*EmbeddingIndex)(nil)

// EmbeddingIndex implements the vector index on pgvector. Every row pairs a
// snapshot id with its embedding and a denormalized copy of the snapshot
// summary, written together with the snapshot row by the fetcher.
type EmbeddingIndex struct {
	db   *sqlx.DB
	dims int
}

// NewEmbeddingIndex creates a vector index bound to a fixed dimension
func NewEmbeddingIndex(db *sqlx.DB, dims int) *EmbeddingIndex {
	return &EmbeddingIndex{db: db, dims: dims}
}

// Dimensions returns the configured vector dimension
func (r *EmbeddingIndex) Dimensions() int {
	return r.dims
}

// Upsert inserts or replaces the embedding record for a snapshot id
func (r *EmbeddingIndex) Upsert(ctx context.Context, id string, embedding pgvector.Vector, meta options.SnapshotMeta) error {
	if len(embedding.Slice()) != r.dims {
		return errors.Wrapf(errors.ErrIndex,
			"vector dimension %d does not match index dimension %d", len(embedding.Slice()), r.dims)
	}

	query := `
		INSERT INTO snapshot_embeddings (
			snapshot_id, ticker, date_key, captured_at, total_contracts,
			calls_count, puts_count, strike_min, strike_max, avg_strike, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (snapshot_id) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			date_key = EXCLUDED.date_key,
			captured_at = EXCLUDED.captured_at,
			total_contracts = EXCLUDED.total_contracts,
			calls_count = EXCLUDED.calls_count,
			puts_count = EXCLUDED.puts_count,
			strike_min = EXCLUDED.strike_min,
			strike_max = EXCLUDED.strike_max,
			avg_strike = EXCLUDED.avg_strike,
			embedding = EXCLUDED.embedding`

	_, err := r.db.ExecContext(ctx, query,
		id, meta.Ticker, meta.DateKey, meta.CapturedAt, meta.TotalContracts,
		meta.CallsCount, meta.PutsCount, meta.StrikeMin, meta.StrikeMax,
		meta.AvgStrike, embedding,
	)
	if err != nil {
		return errors.Wrapf(errors.ErrIndex, "upsert embedding %s: %v", id, err)
	}
	return nil
}

type neighborRow struct {
	options.SnapshotMeta
	Distance float64 `db:"distance"`
}

// Query returns up to k nearest neighbors by cosine distance, nearest first
func (r *EmbeddingIndex) Query(ctx context.Context, embedding pgvector.Vector, k int, filter options.MetaFilter) ([]options.Neighbor, error) {
	if len(embedding.Slice()) != r.dims {
		return nil, errors.Wrapf(errors.ErrIndex,
			"query vector dimension %d does not match index dimension %d", len(embedding.Slice()), r.dims)
	}
	if k <= 0 {
		k = 10
	}

	query := `
		SELECT snapshot_id, ticker, date_key, captured_at, total_contracts,
		       calls_count, puts_count, strike_min, strike_max, avg_strike,
		       embedding <=> $1 AS distance
		FROM snapshot_embeddings
		WHERE ($2 = '' OR ticker = $2)
		ORDER BY embedding <=> $1
		LIMIT $3`

	var rows []neighborRow
	if err := r.db.SelectContext(ctx, &rows, query, embedding, filter.Ticker, k); err != nil {
		return nil, errors.Wrapf(errors.ErrIndex, "similarity query: %v", err)
	}

	neighbors := make([]options.Neighbor, 0, len(rows))
	for _, row := range rows {
		neighbors = append(neighbors, options.Neighbor{
			SnapshotID: row.SnapshotID,
			Distance:   row.Distance,
			Meta:       row.SnapshotMeta,
		})
	}
	return neighbors, nil
}

type embeddingRow struct {
	options.SnapshotMeta
	Embedding pgvector.Vector `db:"embedding"`
}

// GetByID returns the exact stored vector and metadata for a snapshot id
func (r *EmbeddingIndex) GetByID(ctx context.Context, id string) (pgvector.Vector, *options.SnapshotMeta, error) {
	var row embeddingRow

	query := `
		SELECT snapshot_id, ticker, date_key, captured_at, total_contracts,
		       calls_count, puts_count, strike_min, strike_max, avg_strike, embedding
		FROM snapshot_embeddings
		WHERE snapshot_id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return pgvector.Vector{}, nil, errors.Wrapf(errors.ErrNotFound, "embedding %s", id)
	}
	if err != nil {
		return pgvector.Vector{}, nil, errors.Wrapf(errors.ErrIndex, "get embedding %s: %v", id, err)
	}

	meta := row.SnapshotMeta
	return row.Embedding, &meta, nil
}

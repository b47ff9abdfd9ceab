package options

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"
)

// SnapshotQuery filters a store lookup. All fields are optional and
// conjunctive; DateFrom/DateTo compare lexicographically against the
// snapshot date key.
type SnapshotQuery struct {
	Ticker   string
	DateFrom string
	DateTo   string
	Limit    int
}

// SnapshotRepository is the structured snapshot store. Append/replace only:
// there are no update or delete operations, data is retained indefinitely.
type SnapshotRepository interface {
	// Put persists a snapshot. An id collision replaces the existing row.
	Put(ctx context.Context, snapshot *Snapshot) error

	// GetByID returns a snapshot or errors.ErrNotFound
	GetByID(ctx context.Context, id string) (*Snapshot, error)

	// Query returns snapshots matching the filter, most recent capture first
	Query(ctx context.Context, q SnapshotQuery) ([]*Snapshot, error)
}

// SnapshotMeta is the denormalized summary copied next to each stored
// embedding so similarity search can filter and report without a second
// store lookup.
type SnapshotMeta struct {
	SnapshotID     string          `db:"snapshot_id"`
	Ticker         string          `db:"ticker"`
	DateKey        string          `db:"date_key"`
	CapturedAt     time.Time       `db:"captured_at"`
	TotalContracts int             `db:"total_contracts"`
	CallsCount     int             `db:"calls_count"`
	PutsCount      int             `db:"puts_count"`
	StrikeMin      decimal.Decimal `db:"strike_min"`
	StrikeMax      decimal.Decimal `db:"strike_max"`
	AvgStrike      decimal.Decimal `db:"avg_strike"`
}

// MetaFromSnapshot derives the indexed metadata for a snapshot
func MetaFromSnapshot(s *Snapshot) SnapshotMeta {
	return SnapshotMeta{
		SnapshotID:     s.ID,
		Ticker:         s.Ticker,
		DateKey:        s.DateKey,
		CapturedAt:     s.CapturedAt,
		TotalContracts: s.TotalContracts,
		CallsCount:     s.CallsCount,
		PutsCount:      s.PutsCount,
		StrikeMin:      s.StrikeMin,
		StrikeMax:      s.StrikeMax,
		AvgStrike:      s.AvgStrike,
	}
}

// MetaFilter restricts a similarity search by exact-match metadata
type MetaFilter struct {
	Ticker string
}

// Neighbor is one similarity-search hit, nearest-first ordering
type Neighbor struct {
	SnapshotID string
	Distance   float64 // cosine distance, [0,2]
	Meta       SnapshotMeta
}

// VectorIndex stores one embedding per snapshot id, written together with
// the snapshot row as a single logical transaction by the fetcher.
type VectorIndex interface {
	// Upsert inserts or replaces the record for id. Fails with
	// errors.ErrIndex on a vector dimension mismatch.
	Upsert(ctx context.Context, id string, embedding pgvector.Vector, meta SnapshotMeta) error

	// Query returns up to k nearest neighbors of the embedding
	Query(ctx context.Context, embedding pgvector.Vector, k int, filter MetaFilter) ([]Neighbor, error)

	// GetByID returns the exact stored vector for a snapshot id, or
	// errors.ErrNotFound. Recomputing the embedding instead would not be
	// deterministic across embedding-service versions.
	GetByID(ctx context.Context, id string) (pgvector.Vector, *SnapshotMeta, error)
}

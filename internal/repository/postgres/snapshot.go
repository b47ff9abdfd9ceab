package postgres

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"

	"minerva/internal/domain/options"
	"minerva/pkg/errors"
)

// Compile-time check
var _ options.SnapshotRepository = (*SnapshotRepository)(nil)

// SnapshotRepository implements the snapshot store on PostgreSQL via sqlx.
// The table is append/replace only: an id collision overwrites the row,
// otherwise snapshots accumulate and queries return most-recent-first.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Put persists a snapshot, replacing any existing row with the same id
func (r *SnapshotRepository) Put(ctx context.Context, s *options.Snapshot) error {
	query := `
		INSERT INTO options_snapshots (
			id, ticker, date_key, captured_at, total_contracts, calls_count,
			puts_count, strike_min, strike_max, avg_strike, contracts
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (id) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			date_key = EXCLUDED.date_key,
			captured_at = EXCLUDED.captured_at,
			total_contracts = EXCLUDED.total_contracts,
			calls_count = EXCLUDED.calls_count,
			puts_count = EXCLUDED.puts_count,
			strike_min = EXCLUDED.strike_min,
			strike_max = EXCLUDED.strike_max,
			avg_strike = EXCLUDED.avg_strike,
			contracts = EXCLUDED.contracts`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Ticker, s.DateKey, s.CapturedAt, s.TotalContracts, s.CallsCount,
		s.PutsCount, s.StrikeMin, s.StrikeMax, s.AvgStrike, s.Contracts,
	)
	if err != nil {
		return errors.Wrapf(errors.ErrStorage, "put snapshot %s: %v", s.ID, err)
	}
	return nil
}

// GetByID retrieves a snapshot by its id
func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*options.Snapshot, error) {
	var s options.Snapshot

	err := r.db.GetContext(ctx, &s, `SELECT * FROM options_snapshots WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "snapshot %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "get snapshot %s: %v", id, err)
	}
	return &s, nil
}

// Query returns snapshots matching the filter, most recent capture first.
// All filters are conjunctive; date bounds compare lexicographically against
// the date key, which is valid because both exact dates and months are
// zero-padded ISO strings.
func (r *SnapshotRepository) Query(ctx context.Context, q options.SnapshotQuery) ([]*options.Snapshot, error) {
	query := `SELECT * FROM options_snapshots WHERE 1=1`
	args := []interface{}{}

	if q.Ticker != "" {
		args = append(args, q.Ticker)
		query += ` AND ticker = $` + itoa(len(args))
	}
	if q.DateFrom != "" {
		args = append(args, q.DateFrom)
		query += ` AND date_key >= $` + itoa(len(args))
	}
	if q.DateTo != "" {
		args = append(args, q.DateTo)
		query += ` AND date_key <= $` + itoa(len(args))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` ORDER BY captured_at DESC LIMIT $` + itoa(len(args))

	var snapshots []*options.Snapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, errors.Wrapf(errors.ErrStorage, "query snapshots: %v", err)
	}
	return snapshots, nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

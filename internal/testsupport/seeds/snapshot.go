package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"

	"minerva/internal/domain/options"
)

// SnapshotBuilder provides a fluent API for seeding option-chain snapshots
type SnapshotBuilder struct {
	db        DBTX
	ctx       context.Context
	entity    *options.Snapshot
	embedding *pgvector.Vector
}

// NewSnapshotBuilder creates a builder with a small but realistic chain
func NewSnapshotBuilder(db DBTX, ctx context.Context) *SnapshotBuilder {
	now := time.Now().UTC()
	contracts := []options.OptionContract{
		{ContractType: options.ContractCall, StrikePrice: decimal.NewFromInt(100), ExpirationDate: "2026-12-18"},
		{ContractType: options.ContractPut, StrikePrice: decimal.NewFromInt(95), ExpirationDate: "2026-12-18"},
	}

	return &SnapshotBuilder{
		db:     db,
		ctx:    ctx,
		entity: options.NewSnapshot("AAPL", now.Format("2006-01-02"), contracts, now),
	}
}

// WithTicker sets the ticker and regenerates the id
func (b *SnapshotBuilder) WithTicker(ticker string) *SnapshotBuilder {
	b.entity.Ticker = ticker
	b.entity.ID = options.NewSnapshotID(ticker, b.entity.DateKey, b.entity.CapturedAt)
	return b
}

// WithDateKey sets the date key and regenerates the id
func (b *SnapshotBuilder) WithDateKey(dateKey string) *SnapshotBuilder {
	b.entity.DateKey = dateKey
	b.entity.ID = options.NewSnapshotID(b.entity.Ticker, dateKey, b.entity.CapturedAt)
	return b
}

// WithCapturedAt sets the capture time
func (b *SnapshotBuilder) WithCapturedAt(ts time.Time) *SnapshotBuilder {
	b.entity.CapturedAt = ts
	return b
}

// WithContracts replaces the contract list and recomputes statistics
func (b *SnapshotBuilder) WithContracts(contracts []options.OptionContract) *SnapshotBuilder {
	b.entity = options.NewSnapshot(b.entity.Ticker, b.entity.DateKey, contracts, b.entity.CapturedAt)
	return b
}

// WithEmbedding also seeds the vector index row for this snapshot
func (b *SnapshotBuilder) WithEmbedding(embedding pgvector.Vector) *SnapshotBuilder {
	b.embedding = &embedding
	return b
}

// Insert writes the snapshot (and its embedding, when set) to the database
func (b *SnapshotBuilder) Insert() (*options.Snapshot, error) {
	s := b.entity

	_, err := b.db.ExecContext(b.ctx, `
		INSERT INTO options_snapshots (
			id, ticker, date_key, captured_at, total_contracts, calls_count,
			puts_count, strike_min, strike_max, avg_strike, contracts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.Ticker, s.DateKey, s.CapturedAt, s.TotalContracts, s.CallsCount,
		s.PutsCount, s.StrikeMin, s.StrikeMax, s.AvgStrike, s.Contracts,
	)
	if err != nil {
		return nil, fmt.Errorf("seed snapshot: %w", err)
	}

	if b.embedding != nil {
		_, err = b.db.ExecContext(b.ctx, `
			INSERT INTO snapshot_embeddings (
				snapshot_id, ticker, date_key, captured_at, total_contracts,
				calls_count, puts_count, strike_min, strike_max, avg_strike, embedding
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			s.ID, s.Ticker, s.DateKey, s.CapturedAt, s.TotalContracts,
			s.CallsCount, s.PutsCount, s.StrikeMin, s.StrikeMax, s.AvgStrike,
			*b.embedding,
		)
		if err != nil {
			return nil, fmt.Errorf("seed snapshot embedding: %w", err)
		}
	}

	return s, nil
}

// MustInsert inserts the snapshot and panics on error
func (b *SnapshotBuilder) MustInsert() *options.Snapshot {
	s, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return s
}

package options

import (
	"context"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	"minerva/internal/adapters/embeddings"
	"minerva/internal/adapters/ratelimit"
	"minerva/internal/domain/options"
	"minerva/internal/events"
	"minerva/internal/metrics"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// DefaultLimit caps a request when the caller does not specify one
const DefaultLimit = 300

// UpstreamClient fetches raw option contracts for an underlying ticker.
// Implemented by the polygon adapter; tests substitute fakes.
type UpstreamClient interface {
	ListContracts(ctx context.Context, ticker string) ([]options.OptionContract, error)
}

// SearchResult is the outcome of one fetch: the snapshot served plus where
// it came from.
type SearchResult struct {
	Snapshot *options.Snapshot `json:"snapshot"`

	// FromCache marks a result served from the store without an upstream call
	FromCache bool `json:"from_cache"`

	// CachedAt is the capture time of the serving snapshot when FromCache
	CachedAt time.Time `json:"cached_at,omitempty"`

	// TotalAvailable is how many contracts matched before truncation to
	// the requested limit
	TotalAvailable int `json:"total_available"`
}

// Fetcher is the single entry point for reading option chains: it serves
// from the snapshot store when the cached capture is fresh enough and large
// enough, and falls back to the upstream API with write-through otherwise.
type Fetcher struct {
	store    options.SnapshotRepository
	index    options.VectorIndex
	embedder embeddings.Provider
	upstream UpstreamClient
	limiter  *ratelimit.Limiter
	events   *events.Publisher
	now      func() time.Time
	log      *logger.Logger
}

// NewFetcher creates a cache-aware fetcher. All collaborators are explicit
// so tests can inject fakes; limiter and events may be nil.
func NewFetcher(
	store options.SnapshotRepository,
	index options.VectorIndex,
	embedder embeddings.Provider,
	upstream UpstreamClient,
	limiter *ratelimit.Limiter,
	publisher *events.Publisher,
) *Fetcher {
	return &Fetcher{
		store:    store,
		index:    index,
		embedder: embedder,
		upstream: upstream,
		limiter:  limiter,
		events:   publisher,
		now:      time.Now,
		log:      logger.Get().With("component", "fetcher"),
	}
}

// Fetch returns a snapshot for (ticker, dateKey) limited to `limit`
// contracts. Cache policy: a stored snapshot is served only when it holds at
// least `limit` contracts; a smaller one forces a refetch so more specific
// requests are never short-changed. forceRefresh always goes upstream.
//
// A write that persists the snapshot but fails at the embedding or index
// step returns the result together with a *errors.PartialWriteError.
func (f *Fetcher) Fetch(ctx context.Context, ticker, dateKey string, limit int, forceRefresh bool) (*SearchResult, error) {
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "ticker is required")
	}
	if err := options.ValidateDateKey(dateKey); err != nil {
		return nil, err
	}
	ticker = strings.ToUpper(ticker)
	if limit <= 0 {
		limit = DefaultLimit
	}

	if forceRefresh {
		metrics.CacheLookups.WithLabelValues("bypass").Inc()
	} else {
		if cached := f.lookupCache(ctx, ticker, dateKey, limit); cached != nil {
			return cached, nil
		}
	}

	return f.fetchAndStore(ctx, ticker, dateKey, limit)
}

// lookupCache returns a cache-hit result, or nil when the fetch must go
// upstream. A store failure falls through to the upstream path: the cache
// must never take the fetch down with it.
func (f *Fetcher) lookupCache(ctx context.Context, ticker, dateKey string, limit int) *SearchResult {
	stored, err := f.store.Query(ctx, options.SnapshotQuery{
		Ticker:   ticker,
		DateFrom: dateKey,
		DateTo:   dateKey,
		Limit:    1,
	})
	if err != nil {
		f.log.Warnf("cache lookup for %s %s failed, falling back to upstream: %v", ticker, dateKey, err)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	if len(stored) == 0 {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}

	existing := stored[0]
	if existing.TotalContracts < limit {
		f.log.Debugw("cached snapshot insufficient",
			"ticker", ticker, "date_key", dateKey,
			"cached", existing.TotalContracts, "requested", limit)
		metrics.CacheLookups.WithLabelValues("insufficient").Inc()
		return nil
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	f.log.Infow("Serving snapshot from cache",
		"ticker", ticker, "date_key", dateKey,
		"snapshot_id", existing.ID, "captured_at", existing.CapturedAt)

	return &SearchResult{
		Snapshot:       existing.Truncated(limit),
		FromCache:      true,
		CachedAt:       existing.CapturedAt,
		TotalAvailable: existing.TotalContracts,
	}
}

// fetchAndStore performs the upstream fetch, client-side date filtering and
// the write-through to store and index.
func (f *Fetcher) fetchAndStore(ctx context.Context, ticker, dateKey string, limit int) (*SearchResult, error) {
	start := f.now()
	contracts, err := f.upstream.ListContracts(ctx, ticker)
	metrics.RecordUpstreamCall(f.now().Sub(start), err)
	if err != nil {
		return nil, err
	}

	matched := make([]options.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		if options.MatchesDateKey(c.ExpirationDate, dateKey) {
			matched = append(matched, c)
		}
	}

	kept := matched
	if len(kept) > limit {
		kept = kept[:limit]
	}

	// Zero matching contracts is a valid, empty snapshot, not an error
	snapshot := options.NewSnapshot(ticker, dateKey, kept, f.now().UTC())

	result := &SearchResult{
		Snapshot:       snapshot,
		TotalAvailable: len(matched),
	}

	if err := f.persist(ctx, snapshot); err != nil {
		if errors.As(err, new(*errors.PartialWriteError)) {
			return result, err
		}
		return nil, err
	}
	return result, nil
}

// persist writes a snapshot through the full pipeline: store row first, then
// embedding, then index. The order matters because the embedding text needs
// the finished summary statistics, and a snapshot without an embedding is
// still valid for structured queries. There is no rollback: a failure after
// the store write surfaces as a PartialWriteError for later reconciliation.
func (f *Fetcher) persist(ctx context.Context, snapshot *options.Snapshot) error {
	if err := f.store.Put(ctx, snapshot); err != nil {
		metrics.SnapshotsStored.WithLabelValues("error").Inc()
		return err
	}

	vector, err := f.embed(ctx, snapshot)
	if err != nil {
		metrics.SnapshotsStored.WithLabelValues("partial").Inc()
		f.events.PublishSnapshotStored(ctx, snapshot, false)
		return errors.NewPartialWriteError(snapshot.ID, "embed", err)
	}

	if err := f.index.Upsert(ctx, snapshot.ID, vector, options.MetaFromSnapshot(snapshot)); err != nil {
		metrics.SnapshotsStored.WithLabelValues("partial").Inc()
		f.events.PublishSnapshotStored(ctx, snapshot, false)
		return errors.NewPartialWriteError(snapshot.ID, "index", err)
	}

	metrics.SnapshotsStored.WithLabelValues("success").Inc()
	f.events.PublishSnapshotStored(ctx, snapshot, true)
	f.log.Infow("Stored snapshot",
		"snapshot_id", snapshot.ID, "ticker", snapshot.Ticker,
		"date_key", snapshot.DateKey, "contracts", snapshot.TotalContracts)
	return nil
}

// embed generates the snapshot embedding from its deterministic description
func (f *Fetcher) embed(ctx context.Context, snapshot *options.Snapshot) (pgvector.Vector, error) {
	return f.embedText(ctx, options.Describe(snapshot))
}

func (f *Fetcher) embedText(ctx context.Context, text string) (pgvector.Vector, error) {
	raw, err := f.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		metrics.EmbeddingCalls.WithLabelValues("error").Inc()
		return pgvector.Vector{}, err
	}
	metrics.EmbeddingCalls.WithLabelValues("success").Inc()
	return pgvector.NewVector(raw), nil
}

// Store persists a snapshot built from caller-supplied contracts, running
// the same write-through pipeline as an upstream fetch.
func (f *Fetcher) Store(ctx context.Context, ticker, dateKey string, contracts []options.OptionContract) (*options.Snapshot, error) {
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "ticker is required")
	}
	if err := options.ValidateDateKey(dateKey); err != nil {
		return nil, err
	}

	snapshot := options.NewSnapshot(strings.ToUpper(ticker), dateKey, contracts, f.now().UTC())
	if err := f.persist(ctx, snapshot); err != nil {
		if errors.As(err, new(*errors.PartialWriteError)) {
			return snapshot, err
		}
		return nil, err
	}
	return snapshot, nil
}

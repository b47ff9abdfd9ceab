package options

import (
	"context"
	"strings"

	"minerva/internal/adapters/polygon"
	"minerva/internal/domain/options"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// maxSimilarLimit caps semantic search results
const maxSimilarLimit = 20

// Service is the caller-facing surface consumed by the tool layer. It wraps
// the fetcher and detector and adds structured lookups over stored data.
type Service struct {
	fetcher  *Fetcher
	detector *Detector
	store    options.SnapshotRepository
	index    options.VectorIndex
	log      *logger.Logger
}

// NewService creates the options service
func NewService(
	fetcher *Fetcher,
	detector *Detector,
	store options.SnapshotRepository,
	index options.VectorIndex,
) *Service {
	return &Service{
		fetcher:  fetcher,
		detector: detector,
		store:    store,
		index:    index,
		log:      logger.Get().With("component", "options_service"),
	}
}

// SearchOptions returns the option chain for (ticker, dateKey), served from
// cache when possible
func (s *Service) SearchOptions(ctx context.Context, ticker, dateKey string, limit int, forceRefresh bool) (*SearchResult, error) {
	return s.fetcher.Fetch(ctx, ticker, dateKey, limit, forceRefresh)
}

// BatchSearchOptions searches several tickers for one dateKey, isolating
// per-ticker failures
func (s *Service) BatchSearchOptions(ctx context.Context, tickers []string, dateKey string, limit int) (*BatchResult, error) {
	return s.fetcher.FetchBatch(ctx, tickers, dateKey, limit)
}

// StoreSnapshot persists caller-supplied upstream data as a new snapshot.
// Accepts both the upstream envelope and a bare contract array. A payload
// without contracts is rejected: an explicit store of nothing is a caller
// mistake, unlike an empty upstream fetch.
func (s *Service) StoreSnapshot(ctx context.Context, rawData []byte, ticker, dateKey string) (*options.Snapshot, error) {
	contracts, err := polygon.ParseContracts(rawData)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no contracts found in payload")
	}
	return s.fetcher.Store(ctx, ticker, dateKey, contracts)
}

// GetSnapshot returns the full stored snapshot for an id
func (s *Service) GetSnapshot(ctx context.Context, id string) (*options.Snapshot, error) {
	if id == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "snapshot id is required")
	}
	return s.store.GetByID(ctx, id)
}

// GetHistory returns stored snapshots for a ticker and optional date range,
// most recent capture first
func (s *Service) GetHistory(ctx context.Context, ticker, dateFrom, dateTo string, limit int) ([]*options.Snapshot, error) {
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "ticker is required")
	}
	if dateFrom != "" {
		if err := options.ValidateDateKey(dateFrom); err != nil {
			return nil, err
		}
	}
	if dateTo != "" {
		if err := options.ValidateDateKey(dateTo); err != nil {
			return nil, err
		}
	}
	return s.store.Query(ctx, options.SnapshotQuery{
		Ticker:   strings.ToUpper(ticker),
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Limit:    limit,
	})
}

// SimilarSnapshot is one semantic-search hit over stored snapshots
type SimilarSnapshot struct {
	Meta       options.SnapshotMeta `json:"meta"`
	Similarity float64              `json:"similarity"`
	Distance   float64              `json:"distance"`
}

// SearchSimilar embeds a free-text query and returns the stored snapshots
// whose aggregate shape is closest to it, optionally filtered by ticker.
func (s *Service) SearchSimilar(ctx context.Context, query, ticker string, limit int) ([]SimilarSnapshot, error) {
	if query == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "query is required")
	}
	if limit <= 0 || limit > maxSimilarLimit {
		limit = maxSimilarLimit
	}

	vector, err := s.fetcher.embedText(ctx, query)
	if err != nil {
		return nil, err
	}

	neighbors, err := s.index.Query(ctx, vector, limit, options.MetaFilter{Ticker: strings.ToUpper(ticker)})
	if err != nil {
		return nil, err
	}

	hits := make([]SimilarSnapshot, 0, len(neighbors))
	for _, n := range neighbors {
		hits = append(hits, SimilarSnapshot{
			Meta:       n.Meta,
			Similarity: options.SimilarityFromDistance(n.Distance),
			Distance:   n.Distance,
		})
	}
	return hits, nil
}

// DetectAnomaly compares stored snapshots for a ticker against a reference
// baseline via vector similarity
func (s *Service) DetectAnomaly(
	ctx context.Context,
	ticker, referenceDateKey string,
	comparisonDateKeys []string,
	minSimilarity float64,
	maxResults int,
) (*DetectionReport, error) {
	return s.detector.Detect(ctx, ticker, referenceDateKey, comparisonDateKeys, minSimilarity, maxResults)
}

package options

import (
	"context"
	"strings"

	"github.com/dustin/go-humanize"

	"minerva/internal/domain/options"
	"minerva/pkg/errors"
)

// BatchFailure records why one ticker of a batch produced no data
type BatchFailure struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// BatchResult aggregates a multi-ticker search: which tickers were served
// from cache, which were fetched upstream, and which failed. One ticker's
// failure never blocks the others.
type BatchResult struct {
	DateKey   string                   `json:"date_key"`
	CacheHits []string                 `json:"cache_hits"`
	Fetched   []string                 `json:"fetched"`
	Failed    []BatchFailure           `json:"failed"`
	Results   map[string]*SearchResult `json:"-"`
}

// TotalContracts sums the contracts across all successful results
func (r *BatchResult) TotalContracts() int {
	total := 0
	for _, res := range r.Results {
		total += res.Snapshot.TotalContracts
	}
	return total
}

// FetchBatch searches several tickers sharing one dateKey and limit. Cache
// hits are served immediately; misses go upstream sequentially behind the
// rate limiter so a large batch cannot burn the upstream quota. Hard
// failures (upstream error, zero contracts) are collected per ticker.
func (f *Fetcher) FetchBatch(ctx context.Context, tickers []string, dateKey string, limit int) (*BatchResult, error) {
	if len(tickers) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "at least one ticker is required")
	}
	if err := options.ValidateDateKey(dateKey); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	result := &BatchResult{
		DateKey: dateKey,
		Results: make(map[string]*SearchResult),
	}

	// Cache partition first, so rate-limited upstream calls only happen
	// for tickers that actually need them
	var misses []string
	for _, raw := range dedupeTickers(tickers) {
		if cached := f.lookupCache(ctx, raw, dateKey, limit); cached != nil {
			result.CacheHits = append(result.CacheHits, raw)
			result.Results[raw] = cached
			continue
		}
		misses = append(misses, raw)
	}

	for _, ticker := range misses {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		res, err := f.fetchAndStore(ctx, ticker, dateKey, limit)
		switch {
		case err != nil && errors.As(err, new(*errors.PartialWriteError)):
			// Snapshot is stored and servable; only similarity search is missing it
			f.log.Warnf("batch fetch for %s stored partially: %v", ticker, err)
			result.Fetched = append(result.Fetched, ticker)
			result.Results[ticker] = res
		case err != nil:
			f.log.Warnf("batch fetch for %s failed: %v", ticker, err)
			result.Failed = append(result.Failed, BatchFailure{Ticker: ticker, Reason: err.Error()})
		case res.Snapshot.TotalContracts == 0:
			result.Failed = append(result.Failed, BatchFailure{Ticker: ticker, Reason: "no contracts found"})
		default:
			result.Fetched = append(result.Fetched, ticker)
			result.Results[ticker] = res
		}
	}

	f.log.Infow("Batch search complete",
		"date_key", dateKey,
		"cache_hits", len(result.CacheHits),
		"fetched", len(result.Fetched),
		"failed", len(result.Failed),
		"total_contracts", humanize.Comma(int64(result.TotalContracts())))
	return result, nil
}

// dedupeTickers uppercases and deduplicates while preserving order
func dedupeTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/options"
	optionssvc "minerva/internal/services/options"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// stubStore backs the handler tests with a single stored snapshot
type stubStore struct {
	snapshot *options.Snapshot
}

func (s *stubStore) Put(context.Context, *options.Snapshot) error { return nil }

func (s *stubStore) GetByID(_ context.Context, id string) (*options.Snapshot, error) {
	if s.snapshot != nil && s.snapshot.ID == id {
		return s.snapshot, nil
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "snapshot %s", id)
}

func (s *stubStore) Query(context.Context, options.SnapshotQuery) ([]*options.Snapshot, error) {
	if s.snapshot == nil {
		return nil, nil
	}
	return []*options.Snapshot{s.snapshot}, nil
}

type stubIndex struct{}

func (stubIndex) Upsert(context.Context, string, pgvector.Vector, options.SnapshotMeta) error {
	return nil
}

func (stubIndex) Query(context.Context, pgvector.Vector, int, options.MetaFilter) ([]options.Neighbor, error) {
	return nil, nil
}

func (stubIndex) GetByID(context.Context, string) (pgvector.Vector, *options.SnapshotMeta, error) {
	return pgvector.Vector{}, nil, errors.ErrNotFound
}

type stubEmbedder struct{}

func (stubEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (stubEmbedder) Dimensions() int { return 3 }
func (stubEmbedder) Name() string    { return "stub" }

type stubUpstream struct{}

func (stubUpstream) ListContracts(context.Context, string) ([]options.OptionContract, error) {
	return nil, errors.Wrap(errors.ErrUpstream, "status 502")
}

func newTestMux(snapshot *options.Snapshot) *http.ServeMux {
	store := &stubStore{snapshot: snapshot}
	fetcher := optionssvc.NewFetcher(store, stubIndex{}, stubEmbedder{}, stubUpstream{}, nil, nil)
	detector := optionssvc.NewDetector(store, stubIndex{}, nil)
	service := optionssvc.NewService(fetcher, detector, store, stubIndex{})

	mux := http.NewServeMux()
	NewOptionsHandler(service, logger.Get()).Register(mux)
	return mux
}

func contractsOf(n int) []options.OptionContract {
	contracts := make([]options.OptionContract, n)
	for i := range contracts {
		contracts[i] = options.OptionContract{
			ContractType:   options.ContractCall,
			ExpirationDate: "2026-09-18",
		}
	}
	return contracts
}

func TestOptionsHandler_Search(t *testing.T) {
	snapshot := options.NewSnapshot("AAPL", "2026-09-18", contractsOf(5), time.Now().UTC())
	mux := newTestMux(snapshot)

	t.Run("served from cache", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/options/search?ticker=AAPL&date=2026-09-18&limit=5", nil)
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Result struct {
				FromCache bool `json:"from_cache"`
			} `json:"result"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Result.FromCache)
	})

	t.Run("invalid date key is a 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/options/search?ticker=AAPL&date=friday", nil)
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream failure is a 502", func(t *testing.T) {
		// Limit above the cached size forces the (failing) upstream path
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/options/search?ticker=AAPL&date=2026-09-18&limit=50", nil)
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestOptionsHandler_GetSnapshot(t *testing.T) {
	snapshot := options.NewSnapshot("AAPL", "2026-09-18", contractsOf(2), time.Now().UTC())
	mux := newTestMux(snapshot)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/options/snapshots/"+snapshot.ID, nil)
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), snapshot.ID)
	})

	t.Run("missing is a 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/options/snapshots/snap_missing", nil)
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOptionsHandler_StoreSnapshot(t *testing.T) {
	mux := newTestMux(nil)

	t.Run("created", func(t *testing.T) {
		body := `{"ticker": "nvda", "date": "2026-09-18", "data": {"results": [
			{"contract_type": "call", "strike_price": 120, "expiration_date": "2026-09-18"}
		]}}`

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/options/snapshots", strings.NewReader(body))
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"NVDA"`)
	})

	t.Run("empty payload is a 400", func(t *testing.T) {
		body := `{"ticker": "NVDA", "date": "2026-09-18", "data": {"results": []}}`

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/options/snapshots", strings.NewReader(body))
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOptionsHandler_Anomaly_NoReferenceData(t *testing.T) {
	// Store is empty: the detector must answer with structured no-data, not an error
	mux := newTestMux(nil)

	body := `{"ticker": "AAPL", "reference_date": "2026-09-18"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/options/anomaly", strings.NewReader(body))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report optionssvc.DetectionReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.NoReferenceData)
	assert.Empty(t, report.Anomalies)
}

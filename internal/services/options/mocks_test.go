package options

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"minerva/internal/domain/options"
	"minerva/pkg/errors"
)

// mockStore implements options.SnapshotRepository for testing
type mockStore struct {
	putFunc     func(context.Context, *options.Snapshot) error
	getByIDFunc func(context.Context, string) (*options.Snapshot, error)
	queryFunc   func(context.Context, options.SnapshotQuery) ([]*options.Snapshot, error)

	putCalls []*options.Snapshot
}

func (m *mockStore) Put(ctx context.Context, s *options.Snapshot) error {
	m.putCalls = append(m.putCalls, s)
	if m.putFunc != nil {
		return m.putFunc(ctx, s)
	}
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*options.Snapshot, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "snapshot %s", id)
}

func (m *mockStore) Query(ctx context.Context, q options.SnapshotQuery) ([]*options.Snapshot, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, q)
	}
	return nil, nil
}

// mockIndex implements options.VectorIndex for testing
type mockIndex struct {
	upsertFunc  func(context.Context, string, pgvector.Vector, options.SnapshotMeta) error
	queryFunc   func(context.Context, pgvector.Vector, int, options.MetaFilter) ([]options.Neighbor, error)
	getByIDFunc func(context.Context, string) (pgvector.Vector, *options.SnapshotMeta, error)

	upserted map[string]options.SnapshotMeta
}

func (m *mockIndex) Upsert(ctx context.Context, id string, v pgvector.Vector, meta options.SnapshotMeta) error {
	if m.upserted == nil {
		m.upserted = make(map[string]options.SnapshotMeta)
	}
	m.upserted[id] = meta
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, id, v, meta)
	}
	return nil
}

func (m *mockIndex) Query(ctx context.Context, v pgvector.Vector, k int, filter options.MetaFilter) ([]options.Neighbor, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, v, k, filter)
	}
	return nil, nil
}

func (m *mockIndex) GetByID(ctx context.Context, id string) (pgvector.Vector, *options.SnapshotMeta, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return pgvector.Vector{}, nil, errors.Wrapf(errors.ErrNotFound, "embedding %s", id)
}

// mockEmbedder implements embeddings.Provider for testing
type mockEmbedder struct {
	generateFunc func(context.Context, string) ([]float32, error)
	calls        int
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func (m *mockEmbedder) Name() string { return "mock-embedder" }

// mockUpstream implements UpstreamClient for testing
type mockUpstream struct {
	listFunc func(context.Context, string) ([]options.OptionContract, error)
	calls    []string
}

func (m *mockUpstream) ListContracts(ctx context.Context, ticker string) ([]options.OptionContract, error) {
	m.calls = append(m.calls, ticker)
	if m.listFunc != nil {
		return m.listFunc(ctx, ticker)
	}
	return nil, nil
}

package options

import (
	"context"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/options"
	"minerva/pkg/errors"
)

// detectorFixture wires a detector whose store holds the reference and the
// comparison snapshots and whose index returns a fixed neighbor list.
type detectorFixture struct {
	reference *options.Snapshot
	snapshots map[string]*options.Snapshot
	neighbors []options.Neighbor
}

func (f *detectorFixture) build() *Detector {
	store := &mockStore{
		queryFunc: func(context.Context, options.SnapshotQuery) ([]*options.Snapshot, error) {
			if f.reference == nil {
				return nil, nil
			}
			return []*options.Snapshot{f.reference}, nil
		},
		getByIDFunc: func(_ context.Context, id string) (*options.Snapshot, error) {
			if s, ok := f.snapshots[id]; ok {
				return s, nil
			}
			return nil, errors.Wrapf(errors.ErrNotFound, "snapshot %s", id)
		},
	}
	index := &mockIndex{
		getByIDFunc: func(_ context.Context, id string) (pgvector.Vector, *options.SnapshotMeta, error) {
			if f.reference != nil && id == f.reference.ID {
				meta := options.MetaFromSnapshot(f.reference)
				return pgvector.NewVector([]float32{1, 0, 0}), &meta, nil
			}
			return pgvector.Vector{}, nil, errors.Wrapf(errors.ErrNotFound, "embedding %s", id)
		},
		queryFunc: func(context.Context, pgvector.Vector, int, options.MetaFilter) ([]options.Neighbor, error) {
			return f.neighbors, nil
		},
	}
	return NewDetector(store, index, nil)
}

func neighborFor(s *options.Snapshot, distance float64) options.Neighbor {
	return options.Neighbor{
		SnapshotID: s.ID,
		Distance:   distance,
		Meta:       options.MetaFromSnapshot(s),
	}
}

func TestDetector_Detect_OrdersByAscendingSimilarity(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	reference := options.NewSnapshot("AAPL", "2026-09-18", testContracts(50, 50), now)
	mild := options.NewSnapshot("AAPL", "2026-09-25", testContracts(48, 50), now.Add(time.Hour))
	severe := options.NewSnapshot("AAPL", "2026-10-16", testContracts(20, 80), now.Add(2*time.Hour))

	fx := &detectorFixture{
		reference: reference,
		snapshots: map[string]*options.Snapshot{mild.ID: mild, severe.ID: severe},
		neighbors: []options.Neighbor{
			neighborFor(reference, 0),   // self, must be skipped
			neighborFor(mild, 0.1),      // similarity 0.95
			neighborFor(severe, 0.8),    // similarity 0.60
		},
	}

	report, err := fx.build().Detect(ctx, "AAPL", "2026-09-18", nil, 0, 10)
	require.NoError(t, err)

	assert.False(t, report.NoReferenceData)
	assert.Equal(t, reference.ID, report.ReferenceSnapshotID)
	require.Len(t, report.Anomalies, 2)

	assert.Equal(t, severe.ID, report.Anomalies[0].SnapshotID, "biggest anomaly first")
	assert.Equal(t, options.AnomalyHigh, report.Anomalies[0].AnomalyLevel)
	assert.InDelta(t, 0.60, report.Anomalies[0].SimilarityScore, 1e-9)

	assert.Equal(t, mild.ID, report.Anomalies[1].SnapshotID)
	assert.Equal(t, options.AnomalyLow, report.Anomalies[1].AnomalyLevel)

	changes := report.Anomalies[0].Changes
	assert.Equal(t, -30, changes.CallsChange)
	assert.Equal(t, 30, changes.PutsChange)
	assert.Equal(t, 0, changes.TotalContractsChange)
}

func TestDetector_Detect_MinSimilarityFilter(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	reference := options.NewSnapshot("AAPL", "2026-09-18", testContracts(10, 10), now)
	near := options.NewSnapshot("AAPL", "2026-09-25", testContracts(9, 10), now)
	far := options.NewSnapshot("AAPL", "2026-10-16", testContracts(1, 19), now)

	fx := &detectorFixture{
		reference: reference,
		snapshots: map[string]*options.Snapshot{near.ID: near, far.ID: far},
		neighbors: []options.Neighbor{
			neighborFor(near, 0.2), // similarity 0.90
			neighborFor(far, 1.2),  // similarity 0.40
		},
	}

	report, err := fx.build().Detect(ctx, "AAPL", "2026-09-18", nil, 0.5, 10)
	require.NoError(t, err)

	require.Len(t, report.Anomalies, 1, "neighbors below minSimilarity are dropped")
	assert.Equal(t, near.ID, report.Anomalies[0].SnapshotID)
}

func TestDetector_Detect_ComparisonDateFilter(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	reference := options.NewSnapshot("AAPL", "2026-09-18", testContracts(10, 10), now)
	wanted := options.NewSnapshot("AAPL", "2026-09-25", testContracts(8, 12), now)
	unwanted := options.NewSnapshot("AAPL", "2026-10-16", testContracts(5, 15), now)

	fx := &detectorFixture{
		reference: reference,
		snapshots: map[string]*options.Snapshot{wanted.ID: wanted, unwanted.ID: unwanted},
		neighbors: []options.Neighbor{
			neighborFor(wanted, 0.3),
			neighborFor(unwanted, 0.4),
		},
	}

	report, err := fx.build().Detect(ctx, "AAPL", "2026-09-18", []string{"2026-09-25"}, 0, 10)
	require.NoError(t, err)

	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, wanted.ID, report.Anomalies[0].SnapshotID)
}

func TestDetector_Detect_MaxResultsTrimsAfterSort(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	reference := options.NewSnapshot("AAPL", "2026-09-18", testContracts(10, 10), now)
	a := options.NewSnapshot("AAPL", "2026-09-25", testContracts(9, 11), now)
	b := options.NewSnapshot("AAPL", "2026-10-02", testContracts(7, 13), now)
	c := options.NewSnapshot("AAPL", "2026-10-09", testContracts(2, 18), now)

	fx := &detectorFixture{
		reference: reference,
		snapshots: map[string]*options.Snapshot{a.ID: a, b.ID: b, c.ID: c},
		neighbors: []options.Neighbor{
			neighborFor(a, 0.1),
			neighborFor(b, 0.5),
			neighborFor(c, 0.9),
		},
	}

	report, err := fx.build().Detect(ctx, "AAPL", "2026-09-18", nil, 0, 2)
	require.NoError(t, err)

	require.Len(t, report.Anomalies, 2)
	assert.Equal(t, c.ID, report.Anomalies[0].SnapshotID, "trimming keeps the least similar")
	assert.Equal(t, b.ID, report.Anomalies[1].SnapshotID)
}

func TestDetector_Detect_NoReferenceSnapshot(t *testing.T) {
	ctx := context.Background()

	fx := &detectorFixture{}

	report, err := fx.build().Detect(ctx, "AAPL", "2026-09-18", nil, 0, 10)
	require.NoError(t, err, "missing reference is structured no-data, not an error")

	assert.True(t, report.NoReferenceData)
	assert.Contains(t, report.Message, "no reference data")
	assert.Empty(t, report.Anomalies)
}

func TestDetector_Detect_ReferenceWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	reference := options.NewSnapshot("AAPL", "2026-09-18", testContracts(10, 10), now)
	fx := &detectorFixture{
		reference: reference,
		snapshots: map[string]*options.Snapshot{},
	}
	// Break the index lookup for the reference
	detector := fx.build()
	detector.index = &mockIndex{}

	report, err := detector.Detect(ctx, "AAPL", "2026-09-18", nil, 0, 10)
	require.NoError(t, err)

	assert.True(t, report.NoReferenceData)
	assert.Contains(t, report.Message, "no stored embedding")
}

func TestDetector_Detect_SkipsDanglingIndexEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	reference := options.NewSnapshot("AAPL", "2026-09-18", testContracts(10, 10), now)
	present := options.NewSnapshot("AAPL", "2026-09-25", testContracts(8, 12), now)
	dangling := options.NewSnapshot("AAPL", "2026-10-16", testContracts(5, 15), now)

	fx := &detectorFixture{
		reference: reference,
		// dangling is in the index but not in the store
		snapshots: map[string]*options.Snapshot{present.ID: present},
		neighbors: []options.Neighbor{
			neighborFor(present, 0.2),
			neighborFor(dangling, 0.3),
		},
	}

	report, err := fx.build().Detect(ctx, "AAPL", "2026-09-18", nil, 0, 10)
	require.NoError(t, err)

	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, present.ID, report.Anomalies[0].SnapshotID)
}

func TestDetector_Detect_InvalidInput(t *testing.T) {
	ctx := context.Background()
	detector := NewDetector(&mockStore{}, &mockIndex{}, nil)

	_, err := detector.Detect(ctx, "", "2026-09-18", nil, 0, 10)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = detector.Detect(ctx, "AAPL", "next friday", nil, 0, 10)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

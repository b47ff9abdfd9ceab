package options

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"minerva/internal/domain/options"
	"minerva/internal/events"
	"minerva/internal/metrics"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// neighborCandidates is how many nearest neighbors are pulled from the
// index before date and similarity filtering
const neighborCandidates = 50

// defaultMaxAnomalies caps a detection run when the caller does not ask for
// a specific count
const defaultMaxAnomalies = 10

// DetectionReport is the outcome of one anomaly-detection run. A missing
// reference is reported here as structured no-data, never as an error that
// aborts the caller.
type DetectionReport struct {
	Ticker              string                  `json:"ticker"`
	ReferenceDateKey    string                  `json:"reference_date_key"`
	ReferenceSnapshotID string                  `json:"reference_snapshot_id,omitempty"`
	NoReferenceData     bool                    `json:"no_reference_data,omitempty"`
	Message             string                  `json:"message,omitempty"`
	Anomalies           []options.AnomalyResult `json:"anomalies"`
}

// Detector flags anomalous market shifts by comparing stored snapshot
// embeddings for one ticker against a user-chosen reference baseline. It
// reads only from the store and the index and never calls upstream.
type Detector struct {
	store  options.SnapshotRepository
	index  options.VectorIndex
	events *events.Publisher
	log    *logger.Logger
}

// NewDetector creates an anomaly detector
func NewDetector(store options.SnapshotRepository, index options.VectorIndex, publisher *events.Publisher) *Detector {
	return &Detector{
		store:  store,
		index:  index,
		events: publisher,
		log:    logger.Get().With("component", "detector"),
	}
}

// Detect finds the snapshots most dissimilar to the reference capture for
// (ticker, referenceDateKey). When comparisonDateKeys is non-empty only
// those dates are considered; minSimilarity drops neighbors below the
// threshold. Results are sorted ascending by similarity, so the biggest
// anomaly comes first.
func (d *Detector) Detect(
	ctx context.Context,
	ticker, referenceDateKey string,
	comparisonDateKeys []string,
	minSimilarity float64,
	maxResults int,
) (*DetectionReport, error) {
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "ticker is required")
	}
	if err := options.ValidateDateKey(referenceDateKey); err != nil {
		return nil, err
	}
	ticker = strings.ToUpper(ticker)
	if maxResults <= 0 {
		maxResults = defaultMaxAnomalies
	}

	report := &DetectionReport{
		Ticker:           ticker,
		ReferenceDateKey: referenceDateKey,
	}

	reference, err := d.referenceSnapshot(ctx, ticker, referenceDateKey)
	if err != nil {
		metrics.DetectorRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	if reference == nil {
		metrics.DetectorRuns.WithLabelValues("no_reference").Inc()
		report.NoReferenceData = true
		report.Message = fmt.Sprintf(
			"no reference data found for %s on %s; collect a snapshot first", ticker, referenceDateKey)
		return report, nil
	}
	report.ReferenceSnapshotID = reference.ID

	// The stored vector, never a recomputation: embedding-service versions
	// drift, stored distances must not
	refVector, _, err := d.index.GetByID(ctx, reference.ID)
	if errors.Is(err, errors.ErrNotFound) {
		metrics.DetectorRuns.WithLabelValues("no_reference").Inc()
		report.NoReferenceData = true
		report.Message = fmt.Sprintf(
			"reference snapshot %s has no stored embedding; similarity search is unavailable for it", reference.ID)
		return report, nil
	}
	if err != nil {
		metrics.DetectorRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	neighbors, err := d.index.Query(ctx, refVector, neighborCandidates, options.MetaFilter{Ticker: ticker})
	if err != nil {
		metrics.DetectorRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	comparisonSet := toSet(comparisonDateKeys)
	for _, n := range neighbors {
		if n.SnapshotID == reference.ID {
			continue
		}
		if len(comparisonSet) > 0 {
			if _, ok := comparisonSet[n.Meta.DateKey]; !ok {
				continue
			}
		}

		similarity := options.SimilarityFromDistance(n.Distance)
		if similarity < minSimilarity {
			continue
		}

		comparison, err := d.store.GetByID(ctx, n.SnapshotID)
		if errors.Is(err, errors.ErrNotFound) {
			d.log.Warnf("index entry %s has no snapshot row, skipping", n.SnapshotID)
			continue
		}
		if err != nil {
			metrics.DetectorRuns.WithLabelValues("error").Inc()
			return nil, err
		}

		metricsBlock, changes := options.CompareSnapshots(reference, comparison)
		report.Anomalies = append(report.Anomalies, options.AnomalyResult{
			SnapshotID:      comparison.ID,
			DateKey:         comparison.DateKey,
			CapturedAt:      comparison.CapturedAt,
			SimilarityScore: similarity,
			Distance:        n.Distance,
			AnomalyLevel:    options.ClassifyAnomaly(similarity),
			Metrics:         metricsBlock,
			Changes:         changes,
		})
	}

	// Lowest similarity first: the biggest anomaly leads the report
	sort.SliceStable(report.Anomalies, func(i, j int) bool {
		return report.Anomalies[i].SimilarityScore < report.Anomalies[j].SimilarityScore
	})
	if len(report.Anomalies) > maxResults {
		report.Anomalies = report.Anomalies[:maxResults]
	}

	for _, a := range report.Anomalies {
		metrics.DetectorAnomalies.WithLabelValues(string(a.AnomalyLevel)).Inc()
		d.events.PublishAnomalyDetected(ctx, ticker, referenceDateKey, a)
	}
	metrics.DetectorRuns.WithLabelValues("success").Inc()

	d.log.Infow("Anomaly detection complete",
		"ticker", ticker, "reference", referenceDateKey,
		"candidates", len(neighbors), "anomalies", len(report.Anomalies))
	return report, nil
}

// referenceSnapshot returns the most recent snapshot for the reference date
// key, or nil when none exists
func (d *Detector) referenceSnapshot(ctx context.Context, ticker, dateKey string) (*options.Snapshot, error) {
	stored, err := d.store.Query(ctx, options.SnapshotQuery{
		Ticker:   ticker,
		DateFrom: dateKey,
		DateTo:   dateKey,
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}
	return stored[0], nil
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

package options

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnomalyLevel grades how far a comparison snapshot drifted from the
// reference baseline.
type AnomalyLevel string

const (
	AnomalyHigh   AnomalyLevel = "High"
	AnomalyMedium AnomalyLevel = "Medium"
	AnomalyLow    AnomalyLevel = "Low"
)

// SimilarityFromDistance converts a cosine distance in [0,2] to a
// similarity score in [0,1] where 1.0 means identical direction.
func SimilarityFromDistance(distance float64) float64 {
	return 1 - distance/2
}

// ClassifyAnomaly thresholds a similarity score into an anomaly level.
// Lower similarity means a bigger shift in aggregate chain shape.
func ClassifyAnomaly(similarity float64) AnomalyLevel {
	switch {
	case similarity < 0.7:
		return AnomalyHigh
	case similarity < 0.85:
		return AnomalyMedium
	default:
		return AnomalyLow
	}
}

// SnapshotMetrics is the comparison snapshot's summary block reported with
// each anomaly.
type SnapshotMetrics struct {
	TotalContracts int             `json:"total_contracts"`
	CallsCount     int             `json:"calls_count"`
	PutsCount      int             `json:"puts_count"`
	CallPutRatio   float64         `json:"call_put_ratio"`
	StrikeMin      decimal.Decimal `json:"strike_min"`
	StrikeMax      decimal.Decimal `json:"strike_max"`
	AvgStrike      decimal.Decimal `json:"avg_strike"`
}

// ReferenceChanges holds the signed deltas of a comparison snapshot against
// the reference snapshot.
type ReferenceChanges struct {
	TotalContractsChange int             `json:"total_contracts_change"`
	CallsChange          int             `json:"calls_change"`
	PutsChange           int             `json:"puts_change"`
	CallPutRatioChange   float64         `json:"call_put_ratio_change"`
	AvgStrikeChange      decimal.Decimal `json:"avg_strike_change"`
}

// AnomalyResult is one (reference, comparison) pair. Derived, never persisted.
type AnomalyResult struct {
	SnapshotID      string           `json:"snapshot_id"`
	DateKey         string           `json:"date"`
	CapturedAt      time.Time        `json:"captured_at"`
	SimilarityScore float64          `json:"similarity_score"`
	Distance        float64          `json:"distance"`
	AnomalyLevel    AnomalyLevel     `json:"anomaly_level"`
	Metrics         SnapshotMetrics  `json:"metrics"`
	Changes         ReferenceChanges `json:"changes_from_reference"`
}

// CompareSnapshots computes the metric block and signed deltas for a
// comparison snapshot against the reference.
func CompareSnapshots(reference, comparison *Snapshot) (SnapshotMetrics, ReferenceChanges) {
	metrics := SnapshotMetrics{
		TotalContracts: comparison.TotalContracts,
		CallsCount:     comparison.CallsCount,
		PutsCount:      comparison.PutsCount,
		CallPutRatio:   comparison.CallPutRatio(),
		StrikeMin:      comparison.StrikeMin,
		StrikeMax:      comparison.StrikeMax,
		AvgStrike:      comparison.AvgStrike,
	}
	changes := ReferenceChanges{
		TotalContractsChange: comparison.TotalContracts - reference.TotalContracts,
		CallsChange:          comparison.CallsCount - reference.CallsCount,
		PutsChange:           comparison.PutsCount - reference.PutsCount,
		CallPutRatioChange:   comparison.CallPutRatio() - reference.CallPutRatio(),
		AvgStrikeChange:      comparison.AvgStrike.Sub(reference.AvgStrike),
	}
	return metrics, changes
}

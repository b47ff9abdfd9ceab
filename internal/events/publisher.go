package events

import (
	"context"
	"time"

	"minerva/internal/adapters/kafka"
	"minerva/internal/domain/options"
	"minerva/pkg/logger"
)

// SnapshotStoredEvent is emitted after a snapshot write completes
type SnapshotStoredEvent struct {
	SnapshotID     string    `json:"snapshot_id"`
	Ticker         string    `json:"ticker"`
	DateKey        string    `json:"date_key"`
	TotalContracts int       `json:"total_contracts"`
	Indexed        bool      `json:"indexed"` // false when the embedding/index step failed
	CapturedAt     time.Time `json:"captured_at"`
}

// AnomalyDetectedEvent is emitted for each anomaly a detection run reports
type AnomalyDetectedEvent struct {
	Ticker           string    `json:"ticker"`
	ReferenceDateKey string    `json:"reference_date_key"`
	ComparisonDate   string    `json:"comparison_date"`
	SimilarityScore  float64   `json:"similarity_score"`
	AnomalyLevel     string    `json:"anomaly_level"`
	DetectedAt       time.Time `json:"detected_at"`
}

// Publisher publishes snapshot lifecycle events to Kafka. A nil Publisher is
// valid and drops everything, so the event stream stays optional.
type Publisher struct {
	producer *kafka.Producer
	topic    string
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		log:      logger.Get().With("component", "events"),
	}
}

// PublishSnapshotStored publishes a snapshot-stored event. Publish failures
// are logged, not propagated: the write already happened.
func (p *Publisher) PublishSnapshotStored(ctx context.Context, s *options.Snapshot, indexed bool) {
	if p == nil || p.producer == nil {
		return
	}

	event := SnapshotStoredEvent{
		SnapshotID:     s.ID,
		Ticker:         s.Ticker,
		DateKey:        s.DateKey,
		TotalContracts: s.TotalContracts,
		Indexed:        indexed,
		CapturedAt:     s.CapturedAt,
	}
	if err := p.producer.Publish(ctx, p.topic, s.Ticker, event); err != nil {
		p.log.Warnf("snapshot-stored event for %s not published: %v", s.ID, err)
	}
}

// PublishAnomalyDetected publishes one anomaly result
func (p *Publisher) PublishAnomalyDetected(ctx context.Context, ticker, referenceDateKey string, result options.AnomalyResult) {
	if p == nil || p.producer == nil {
		return
	}

	event := AnomalyDetectedEvent{
		Ticker:           ticker,
		ReferenceDateKey: referenceDateKey,
		ComparisonDate:   result.DateKey,
		SimilarityScore:  result.SimilarityScore,
		AnomalyLevel:     string(result.AnomalyLevel),
		DetectedAt:       time.Now().UTC(),
	}
	if err := p.producer.Publish(ctx, p.topic, ticker, event); err != nil {
		p.log.Warnf("anomaly event for %s not published: %v", ticker, err)
	}
}

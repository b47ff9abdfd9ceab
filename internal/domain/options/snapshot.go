package options

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is an immutable point-in-time capture of all contracts matching a
// (ticker, dateKey) query. Contract order is the upstream response order.
// Snapshots are never updated; a refresh writes a new snapshot and queries
// return most-recent-first.
type Snapshot struct {
	ID         string    `db:"id" json:"id"`
	Ticker     string    `db:"ticker" json:"ticker"`
	DateKey    string    `db:"date_key" json:"date_key"`
	CapturedAt time.Time `db:"captured_at" json:"captured_at"`

	TotalContracts int `db:"total_contracts" json:"total_contracts"`
	CallsCount     int `db:"calls_count" json:"calls_count"`
	PutsCount      int `db:"puts_count" json:"puts_count"`

	StrikeMin decimal.Decimal `db:"strike_min" json:"strike_min"`
	StrikeMax decimal.Decimal `db:"strike_max" json:"strike_max"`
	AvgStrike decimal.Decimal `db:"avg_strike" json:"avg_strike"`

	Contracts ContractList `db:"contracts" json:"contracts"`
}

// NewSnapshot builds a snapshot from upstream-ordered contracts, assigns a
// fresh id and computes summary statistics. An empty contract slice is valid.
func NewSnapshot(ticker, dateKey string, contracts []OptionContract, capturedAt time.Time) *Snapshot {
	s := &Snapshot{
		ID:         NewSnapshotID(ticker, dateKey, capturedAt),
		Ticker:     ticker,
		DateKey:    dateKey,
		CapturedAt: capturedAt,
		Contracts:  contracts,
	}
	s.recomputeStats()
	return s
}

// NewSnapshotID generates a globally unique snapshot id carrying ticker,
// date key and capture timestamp, plus a random suffix so two captures in
// the same second never collide.
func NewSnapshotID(ticker, dateKey string, capturedAt time.Time) string {
	return fmt.Sprintf("snap_%s_%s_%s_%s",
		ticker, dateKey,
		capturedAt.UTC().Format("20060102T150405"),
		uuid.NewString()[:8],
	)
}

// recomputeStats derives the summary statistics from the contract list.
// Contracts with an unrecognized type stay in TotalContracts but are
// excluded from both typed counts, so CallsCount+PutsCount <= TotalContracts.
func (s *Snapshot) recomputeStats() {
	s.TotalContracts = len(s.Contracts)
	s.CallsCount = 0
	s.PutsCount = 0

	var (
		sum     decimal.Decimal
		strikes int
	)
	s.StrikeMin = decimal.Zero
	s.StrikeMax = decimal.Zero

	for _, c := range s.Contracts {
		switch {
		case c.ContractType.IsCall():
			s.CallsCount++
		case c.ContractType.IsPut():
			s.PutsCount++
		}

		if !c.HasStrike() {
			continue
		}
		if strikes == 0 || c.StrikePrice.LessThan(s.StrikeMin) {
			s.StrikeMin = c.StrikePrice
		}
		if strikes == 0 || c.StrikePrice.GreaterThan(s.StrikeMax) {
			s.StrikeMax = c.StrikePrice
		}
		sum = sum.Add(c.StrikePrice)
		strikes++
	}

	if strikes > 0 {
		s.AvgStrike = sum.DivRound(decimal.NewFromInt(int64(strikes)), 4)
	} else {
		s.AvgStrike = decimal.Zero
	}
}

// Truncated returns a copy limited to the first n contracts in original
// order, with summary statistics recomputed over the kept prefix. The id is
// preserved since the copy still represents the same stored capture.
func (s *Snapshot) Truncated(n int) *Snapshot {
	if n >= len(s.Contracts) {
		return s
	}
	out := &Snapshot{
		ID:         s.ID,
		Ticker:     s.Ticker,
		DateKey:    s.DateKey,
		CapturedAt: s.CapturedAt,
		Contracts:  append(ContractList(nil), s.Contracts[:n]...),
	}
	out.recomputeStats()
	return out
}

// CallPutRatio returns calls/puts, or zero when there are no puts
func (s *Snapshot) CallPutRatio() float64 {
	if s.PutsCount == 0 {
		return 0
	}
	return float64(s.CallsCount) / float64(s.PutsCount)
}

package options

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(contracts ...OptionContract) []OptionContract {
	return contracts
}

func call(strike int64) OptionContract {
	return OptionContract{
		ContractType:   ContractCall,
		StrikePrice:    decimal.NewFromInt(strike),
		ExpirationDate: "2026-09-18",
	}
}

func put(strike int64) OptionContract {
	return OptionContract{
		ContractType:   ContractPut,
		StrikePrice:    decimal.NewFromInt(strike),
		ExpirationDate: "2026-09-18",
	}
}

func TestNewSnapshot_Stats(t *testing.T) {
	now := time.Now().UTC()

	s := NewSnapshot("AAPL", "2026-09-18", chain(call(100), call(110), put(95), put(90)), now)

	assert.Equal(t, 4, s.TotalContracts)
	assert.Equal(t, 2, s.CallsCount)
	assert.Equal(t, 2, s.PutsCount)
	assert.True(t, s.StrikeMin.Equal(decimal.NewFromInt(90)))
	assert.True(t, s.StrikeMax.Equal(decimal.NewFromInt(110)))
	assert.True(t, s.AvgStrike.Equal(decimal.NewFromFloat(98.75)))
	assert.Equal(t, 1.0, s.CallPutRatio())
}

func TestNewSnapshot_UnknownTypeCountsInTotalOnly(t *testing.T) {
	unknown := OptionContract{ContractType: "straddle", StrikePrice: decimal.NewFromInt(100)}

	s := NewSnapshot("AAPL", "2026-09-18", chain(call(100), unknown), time.Now().UTC())

	assert.Equal(t, 2, s.TotalContracts)
	assert.Equal(t, 1, s.CallsCount)
	assert.Equal(t, 0, s.PutsCount)
	assert.LessOrEqual(t, s.CallsCount+s.PutsCount, s.TotalContracts)
}

func TestNewSnapshot_MissingStrikesExcludedFromRange(t *testing.T) {
	noStrike := OptionContract{ContractType: ContractCall, ExpirationDate: "2026-09-18"}

	s := NewSnapshot("AAPL", "2026-09-18", chain(noStrike, call(100)), time.Now().UTC())

	assert.True(t, s.StrikeMin.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.StrikeMax.Equal(decimal.NewFromInt(100)))
	assert.True(t, s.AvgStrike.Equal(decimal.NewFromInt(100)), "only priced contracts enter the average")
}

func TestNewSnapshot_Empty(t *testing.T) {
	s := NewSnapshot("AAPL", "2026-09-18", nil, time.Now().UTC())

	assert.Equal(t, 0, s.TotalContracts)
	assert.True(t, s.StrikeMin.IsZero())
	assert.True(t, s.StrikeMax.IsZero())
	assert.True(t, s.AvgStrike.IsZero())
	assert.Equal(t, 0.0, s.CallPutRatio())
	assert.NotEmpty(t, s.ID, "empty snapshots are valid and addressable")
}

func TestNewSnapshotID(t *testing.T) {
	ts := time.Date(2026, 9, 18, 14, 30, 5, 0, time.UTC)

	id1 := NewSnapshotID("AAPL", "2026-09-18", ts)
	id2 := NewSnapshotID("AAPL", "2026-09-18", ts)

	assert.True(t, strings.HasPrefix(id1, "snap_AAPL_2026-09-18_20260918T143005_"))
	assert.NotEqual(t, id1, id2, "same-second captures must not collide")
}

func TestSnapshot_Truncated(t *testing.T) {
	now := time.Now().UTC()
	s := NewSnapshot("AAPL", "2026-09-18", chain(call(100), call(110), put(95), put(90)), now)

	t.Run("keeps prefix order and recomputes stats", func(t *testing.T) {
		out := s.Truncated(2)

		require.Equal(t, 2, out.TotalContracts)
		assert.Equal(t, 2, out.CallsCount)
		assert.Equal(t, 0, out.PutsCount)
		assert.True(t, out.StrikeMax.Equal(decimal.NewFromInt(110)))
		assert.Equal(t, s.ID, out.ID, "a truncated view still refers to the stored capture")
		assert.Equal(t, 4, s.TotalContracts, "the original is untouched")
	})

	t.Run("limit at or above length returns the snapshot unchanged", func(t *testing.T) {
		assert.Same(t, s, s.Truncated(4))
		assert.Same(t, s, s.Truncated(100))
	})
}

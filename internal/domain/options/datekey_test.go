package options

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minerva/pkg/errors"
)

func TestValidateDateKey(t *testing.T) {
	valid := []string{"2026-09-18", "2026-09", "1999-01", "2030-12-31"}
	for _, key := range valid {
		assert.NoError(t, ValidateDateKey(key), key)
	}

	invalid := []string{"", "2026", "2026-9", "2026-9-18", "18-09-2026", "2026/09/18", "september", "2026-09-18T00:00:00"}
	for _, key := range invalid {
		assert.ErrorIs(t, ValidateDateKey(key), errors.ErrInvalidInput, key)
	}
}

func TestIsMonthKey(t *testing.T) {
	assert.True(t, IsMonthKey("2026-09"))
	assert.False(t, IsMonthKey("2026-09-18"))
	assert.False(t, IsMonthKey("garbage"))
}

func TestMatchesDateKey(t *testing.T) {
	t.Run("exact date requires equality", func(t *testing.T) {
		assert.True(t, MatchesDateKey("2026-09-18", "2026-09-18"))
		assert.False(t, MatchesDateKey("2026-09-25", "2026-09-18"))
	})

	t.Run("month key matches any expiration in the month", func(t *testing.T) {
		assert.True(t, MatchesDateKey("2026-09-18", "2026-09"))
		assert.True(t, MatchesDateKey("2026-09-25", "2026-09"))
		assert.False(t, MatchesDateKey("2026-10-16", "2026-09"))
	})
}

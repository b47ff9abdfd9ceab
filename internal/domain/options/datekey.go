package options

import (
	"regexp"
	"strings"

	"minerva/pkg/errors"
)

// A date key is either an exact expiration date (YYYY-MM-DD) or a whole
// month (YYYY-MM). Both are zero-padded ISO strings, so range queries can
// compare them lexicographically.

var (
	dateKeyExact = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateKeyMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// ValidateDateKey checks the key is either an exact date or a month
func ValidateDateKey(dateKey string) error {
	if dateKeyExact.MatchString(dateKey) || dateKeyMonth.MatchString(dateKey) {
		return nil
	}
	return errors.Wrapf(errors.ErrInvalidInput, "date key %q is not YYYY-MM-DD or YYYY-MM", dateKey)
}

// IsMonthKey reports whether the key has month granularity
func IsMonthKey(dateKey string) bool {
	return dateKeyMonth.MatchString(dateKey)
}

// MatchesDateKey reports whether an expiration date falls under the key:
// exact equality for date keys, prefix match for month keys.
func MatchesDateKey(expirationDate, dateKey string) bool {
	if IsMonthKey(dateKey) {
		return strings.HasPrefix(expirationDate, dateKey)
	}
	return expirationDate == dateKey
}

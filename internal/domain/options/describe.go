package options

import (
	"fmt"
	"strings"
)

// Describe renders the deterministic text used as embedding input. It is a
// pure function of the snapshot's summary statistics: two snapshots with
// identical counts and strike range describe identically regardless of
// contract-level details. Similarity search therefore operates on aggregate
// chain shape, not on individual contract identity.
func Describe(s *Snapshot) string {
	ratio := "N/A"
	if s.PutsCount > 0 {
		ratio = fmt.Sprintf("%.2f", float64(s.CallsCount)/float64(s.PutsCount))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stock Options Data for %s\n", s.Ticker)
	fmt.Fprintf(&b, "Date: %s\n", s.DateKey)
	fmt.Fprintf(&b, "Total Contracts: %d\n", s.TotalContracts)
	fmt.Fprintf(&b, "Call Options: %d\n", s.CallsCount)
	fmt.Fprintf(&b, "Put Options: %d\n", s.PutsCount)
	fmt.Fprintf(&b, "Strike Price Range: $%s to $%s\n", s.StrikeMin.StringFixed(2), s.StrikeMax.StringFixed(2))
	fmt.Fprintf(&b, "Call/Put Ratio: %s", ratio)
	return b.String()
}

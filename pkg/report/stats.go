package report

import "sort"

// Metric summarizes one series of integer data points.
type Metric struct {
	Count int `json:"count"`
	Avg   int `json:"avg"`
	Min   int `json:"min"`
	Max   int `json:"max"`

	// Percentile is the value at the percentile named in Metadata.Percentile.
	Percentile int `json:"percentile"`
}

// Summarize computes the floor average, min, max, and pth percentile over
// values. Returns nil for an empty series so callers can render "N/A" instead
// of a bogus zero.
func Summarize(values []int, p int) *Metric {
	if len(values) == 0 {
		return nil
	}

	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	sum := 0
	for _, v := range sorted {
		sum += v
	}

	return &Metric{
		Count:      len(sorted),
		Avg:        sum / len(sorted),
		Min:        sorted[0],
		Max:        sorted[len(sorted)-1],
		Percentile: percentile(sorted, p),
	}
}

// percentile computes the pth percentile with linear interpolation between
// closest ranks, the same definition numpy uses by default.
func percentile(sorted []int, p int) int {
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := float64(p) / 100 * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	frac := rank - float64(lo)
	return int(float64(sorted[lo]) + frac*float64(sorted[hi]-sorted[lo]))
}

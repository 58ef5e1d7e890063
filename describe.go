package lookahead

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Distribution contains descriptive statistics of a sample.
type Distribution struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
}

// Describe computes descriptive statistics for a sample. The standard
// deviation of a single value is zero.
func Describe(sample []float64) Distribution {
	if len(sample) == 0 {
		return Distribution{}
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	d := Distribution{
		N:      len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

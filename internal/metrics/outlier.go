package metrics

import (
	"math"
	"sort"
)

const fenceMultiplier = 1.5

// Quartiles returns Q1 and Q3 of the sample using linear interpolation on
// the sorted values. ok is false for an empty sample.
func Quartiles(sample []float64) (q1, q3 float64, ok bool) {
	if len(sample) == 0 {
		return 0, 0, false
	}

	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)

	return quantile(sorted, 0.25), quantile(sorted, 0.75), true
}

// Fences returns the IQR outlier fences [Q1 - 1.5*IQR, Q3 + 1.5*IQR] for the
// sample. ok is false for an empty sample.
func Fences(sample []float64) (lower, upper float64, ok bool) {
	q1, q3, ok := Quartiles(sample)
	if !ok {
		return 0, 0, false
	}

	iqr := q3 - q1
	return q1 - fenceMultiplier*iqr, q3 + fenceMultiplier*iqr, true
}

// quantile interpolates the p-quantile of an ascending sorted sample.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}

	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuartiles(t *testing.T) {
	tests := []struct {
		name   string
		sample []float64
		q1     float64
		q3     float64
		ok     bool
	}{
		{
			name:   "empty sample",
			sample: nil,
			ok:     false,
		},
		{
			name:   "single value",
			sample: []float64{42},
			q1:     42,
			q3:     42,
			ok:     true,
		},
		{
			name:   "five values with extreme",
			sample: []float64{10, 20, 30, 40, 500},
			q1:     20,
			q3:     40,
			ok:     true,
		},
		{
			name:   "unsorted input",
			sample: []float64{500, 10, 40, 30, 20},
			q1:     20,
			q3:     40,
			ok:     true,
		},
		{
			name:   "four values interpolated",
			sample: []float64{1, 2, 3, 4},
			q1:     1.75,
			q3:     3.25,
			ok:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q1, q3, ok := Quartiles(tt.sample)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.InDelta(t, tt.q1, q1, 1e-9)
			assert.InDelta(t, tt.q3, q3, 1e-9)
		})
	}
}

func TestFences(t *testing.T) {
	lower, upper, ok := Fences([]float64{10, 20, 30, 40, 500})
	require.True(t, ok)
	assert.InDelta(t, -10.0, lower, 1e-9)
	assert.InDelta(t, 70.0, upper, 1e-9)
}

func TestFencesDoesNotMutateSample(t *testing.T) {
	sample := []float64{500, 10, 40, 30, 20}
	_, _, ok := Fences(sample)
	require.True(t, ok)
	assert.Equal(t, []float64{500, 10, 40, 30, 20}, sample)
}

func TestFencesEmptySample(t *testing.T) {
	_, _, ok := Fences(nil)
	assert.False(t, ok)
}

func TestFencesIdenticalValues(t *testing.T) {
	// Zero IQR collapses the fences onto the value itself; nothing is an
	// outlier in a uniform distribution.
	lower, upper, ok := Fences([]float64{30, 30, 30, 30})
	require.True(t, ok)
	assert.Equal(t, 30.0, lower)
	assert.Equal(t, 30.0, upper)
}

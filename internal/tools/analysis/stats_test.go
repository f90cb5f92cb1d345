package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 3.0, Mean([]float64{1, 2, 3, 4, 5}))
	assert.InDelta(t, 2.5, Mean([]float64{2, 3}), 1e-9)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.InDelta(t, 2.0, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 40.0, Percentile(values, 100))
	assert.InDelta(t, 25.0, Percentile(values, 50), 1e-9)
	assert.InDelta(t, 17.5, Percentile(values, 25), 1e-9)
	assert.InDelta(t, 32.5, Percentile(values, 75), 1e-9)
}

func TestPearson(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, Pearson(xs, []float64{2, 4, 6, 8, 10}), 1e-9)
	assert.InDelta(t, -1.0, Pearson(xs, []float64{10, 8, 6, 4, 2}), 1e-9)
	assert.Equal(t, 0.0, Pearson(xs, []float64{7, 7, 7, 7, 7}))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{2}))
	assert.Equal(t, 0.0, Pearson(xs, []float64{1, 2}))
}

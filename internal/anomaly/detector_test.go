package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-tracker/internal/models"
)

func jitter(n int, lo, hi float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = lo
		} else {
			out[i] = hi
		}
	}
	return out
}

func repeat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDetectInsufficientHistory(t *testing.T) {
	for n := 0; n < MinSamples; n++ {
		_, ok := Detect(jitter(n, 99, 101), 500)
		assert.False(t, ok, "n=%d", n)
	}
}

func TestDetectZeroVariance(t *testing.T) {
	for _, probe := range []float64{0.01, 100, 130, 1e6} {
		_, ok := Detect(repeat(30, 100), probe)
		assert.False(t, ok, "probe=%v", probe)
	}
}

func TestDetectNoiseFloorSuppressesTinyMoves(t *testing.T) {
	// sd = 0.01, so 100.5 has z = 50 but moves well under 1%
	window := jitter(30, 99.99, 100.01)
	_, ok := Detect(window, 100.5)
	assert.False(t, ok)
}

func TestDetectHighOnLargeJump(t *testing.T) {
	v, ok := Detect(jitter(15, 99, 101), 130)
	require.True(t, ok)
	assert.Equal(t, models.SeverityHigh, v.Severity)
	assert.Greater(t, v.ZScore, 6.0)
	assert.Contains(t, v.Message, "Unusual price movement")
}

func TestDetectSeverityBands(t *testing.T) {
	// mean 100, population sd 2, window[0] = 98
	window := jitter(30, 98, 102)

	cases := []struct {
		price float64
		want  models.Severity
		ok    bool
	}{
		{114, models.SeverityHigh, true},   // z = 7
		{112, models.SeverityMedium, true}, // z = 6, not strictly above
		{109, models.SeverityMedium, true}, // z = 4.5
		{107, models.SeverityLow, true},    // z = 3.5
		{105, "", false},                   // z = 2.5
		{86, models.SeverityHigh, true},    // z = -7
	}
	for _, tc := range cases {
		v, ok := Detect(window, tc.price)
		assert.Equal(t, tc.ok, ok, "price=%v", tc.price)
		assert.Equal(t, tc.want, v.Severity, "price=%v", tc.price)
	}
}

func TestDetectLowMessage(t *testing.T) {
	v, ok := Detect(jitter(30, 98, 102), 107)
	require.True(t, ok)
	assert.Equal(t, "Minor deviations detected (9.18%). Z-Score: 3.50", v.Message)
}

func TestDetectPercentChangeUsesMostRecentPrior(t *testing.T) {
	window := jitter(30, 98, 102)
	window[0] = 100
	v, ok := Detect(window, 120)
	require.True(t, ok)
	assert.InDelta(t, 20.0, v.PercentChange, 1e-9)
}

func TestPrices(t *testing.T) {
	obs := []models.PriceObservation{{Price: 3}, {Price: 1}}
	assert.Equal(t, []float64{3, 1}, Prices(obs))
}

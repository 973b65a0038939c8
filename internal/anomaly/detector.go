// Package anomaly classifies a new price against the instrument's own recent history.
package anomaly

import (
	"fmt"
	"math"

	"github.com/kjannette/trahn-tracker/internal/models"
)

const (
	MinSamples    = 10
	WindowSize    = 30
	NoiseFloorPct = 1.0
	HighZ         = 6.0
	MediumZ       = 4.0
	LowZ          = 3.0
)

type Verdict struct {
	Severity      models.Severity
	Message       string
	ZScore        float64
	PercentChange float64
}

// Detect returns a verdict for price given the prior window, ordered newest first.
// window[0] is the reference for the percent change. The second result is false
// when there is too little history, the window has zero variance, the move is
// below the noise floor, or the z-score stays within bounds.
func Detect(window []float64, price float64) (Verdict, bool) {
	if len(window) < MinSamples {
		return Verdict{}, false
	}

	var sum float64
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(len(window))

	var sq float64
	for _, p := range window {
		d := p - mean
		sq += d * d
	}
	sd := math.Sqrt(sq / float64(len(window)))
	if sd == 0 {
		return Verdict{}, false
	}

	last := window[0]
	if last == 0 {
		return Verdict{}, false
	}
	z := (price - mean) / sd
	pct := (price - last) / last * 100

	if math.Abs(pct) < NoiseFloorPct {
		return Verdict{}, false
	}

	v := Verdict{ZScore: z, PercentChange: pct}
	absZ := math.Abs(z)
	switch {
	case absZ > HighZ:
		v.Severity = models.SeverityHigh
	case absZ > MediumZ:
		v.Severity = models.SeverityMedium
	case absZ > LowZ:
		v.Severity = models.SeverityLow
	default:
		return Verdict{}, false
	}
	v.Message = message(v)
	return v, true
}

func message(v Verdict) string {
	if v.Severity == models.SeverityLow {
		return fmt.Sprintf("Minor deviations detected (%.2f%%). Z-Score: %.2f", v.PercentChange, v.ZScore)
	}
	return fmt.Sprintf("Unusual price movement (%.2f%%). Z-Score: %.2f", v.PercentChange, v.ZScore)
}

// Prices projects observations onto their prices, keeping order.
func Prices(obs []models.PriceObservation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Price
	}
	return out
}

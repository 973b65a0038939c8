package indicator

import (
	"math"

	"github.com/kjannette/trahn-tracker/internal/models"
)

// TrueRange of candle i against the close of candle i-1.
func TrueRange(cur, prev models.Candle) float64 {
	return math.Max(cur.High-cur.Low,
		math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// ATR returns one value per candle. Entries before index period are 0.
// ATR[period] is the simple mean of TR over candles 1..period, later entries
// use Wilder smoothing.
func ATR(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	if period <= 0 || len(candles) <= period {
		return out
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += TrueRange(candles[i], candles[i-1])
	}
	atr := sum / float64(period)
	out[period] = atr

	p := float64(period)
	for i := period + 1; i < len(candles); i++ {
		atr = (atr*(p-1) + TrueRange(candles[i], candles[i-1])) / p
		out[i] = atr
	}
	return out
}

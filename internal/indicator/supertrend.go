package indicator

import "github.com/kjannette/trahn-tracker/internal/models"

type Trend int

const (
	TrendDown Trend = -1
	TrendUp   Trend = 1
)

func (t Trend) String() string {
	if t == TrendDown {
		return "DOWN"
	}
	return "UP"
}

// SupertrendResult has one entry per input candle. Entries below index period
// are warmup placeholders (band 0, trend UP) and carry no signal.
type SupertrendResult struct {
	Band  []float64
	Trend []Trend
}

// bandState is the accumulator carried from one candle to the next.
type bandState struct {
	finalUpper float64
	finalLower float64
	trend      Trend
}

// Supertrend computes the ATR trailing band. The recursion is seeded with the
// band state at period-1, which is zero with trend UP.
func Supertrend(candles []models.Candle, period int, multiplier float64) SupertrendResult {
	n := len(candles)
	res := SupertrendResult{Band: make([]float64, n), Trend: make([]Trend, n)}
	for i := range res.Trend {
		res.Trend[i] = TrendUp
	}
	if period <= 0 || n <= period {
		return res
	}

	atr := ATR(candles, period)
	state := bandState{trend: TrendUp}
	for i := period; i < n; i++ {
		state = state.step(candles[i], candles[i-1].Close, atr[i], multiplier)
		if state.trend == TrendUp {
			res.Band[i] = state.finalLower
		} else {
			res.Band[i] = state.finalUpper
		}
		res.Trend[i] = state.trend
	}
	return res
}

func (s bandState) step(c models.Candle, prevClose, atr, multiplier float64) bandState {
	mid := (c.High + c.Low) / 2
	basicUpper := mid + multiplier*atr
	basicLower := mid - multiplier*atr

	next := bandState{finalUpper: s.finalUpper, finalLower: s.finalLower, trend: s.trend}
	if basicUpper < s.finalUpper || prevClose > s.finalUpper {
		next.finalUpper = basicUpper
	}
	if basicLower > s.finalLower || prevClose < s.finalLower {
		next.finalLower = basicLower
	}

	switch {
	case s.trend == TrendUp && c.Close < next.finalLower:
		next.trend = TrendDown
	case s.trend == TrendDown && c.Close > next.finalUpper:
		next.trend = TrendUp
	}
	return next
}

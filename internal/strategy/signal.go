// Package strategy evaluates the Supertrend + RSI momentum entry on recent
// candles and alerts instrument owners on a buy signal.
package strategy

import (
	"github.com/kjannette/trahn-tracker/internal/indicator"
	"github.com/kjannette/trahn-tracker/internal/models"
)

const (
	RSIPeriod            = 14
	SupertrendPeriod     = 10
	SupertrendMultiplier = 3.0
	MinCandles           = 50

	// RSI levels: crossing the midline, or the top of the neutral band while rising.
	midlineRSI     = 50.0
	neutralTopRSI  = 60.0
	trendWeight    = 40
	momentumWeight = 30
	closeWeight    = 30
)

type Signal struct {
	Buy        bool
	Trend      indicator.Trend
	PrevRSI    float64
	LastRSI    float64
	Confidence int
}

// Evaluate reads the last two indicator points of candles. ok is false when the
// series is too short to trust.
func Evaluate(candles []models.Candle) (sig Signal, ok bool) {
	if len(candles) < MinCandles {
		return Signal{}, false
	}

	rsi := indicator.RSI(models.Closes(candles), RSIPeriod)
	st := indicator.Supertrend(candles, SupertrendPeriod, SupertrendMultiplier)
	if len(rsi) < 2 {
		return Signal{}, false
	}

	sig = Signal{
		Trend:   st.Trend[len(st.Trend)-1],
		PrevRSI: rsi[len(rsi)-2],
		LastRSI: rsi[len(rsi)-1],
	}
	crossedMid := sig.PrevRSI <= midlineRSI && sig.LastRSI > midlineRSI
	risingPastBand := sig.PrevRSI <= neutralTopRSI && sig.LastRSI > neutralTopRSI && sig.LastRSI > sig.PrevRSI
	sig.Buy = sig.Trend == indicator.TrendUp && (crossedMid || risingPastBand)

	if sig.Buy {
		sig.Confidence = trendWeight + momentumWeight
		if candles[len(candles)-1].Close > candles[len(candles)-2].Close {
			sig.Confidence += closeWeight
		}
	}
	return sig, true
}

package models

import "time"

type PriceObservation struct {
	ID        int64     `json:"id"`
	AssetID   int64     `json:"assetId"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// PricePoint is an unpersisted (timestamp, price) sample, as returned by history providers.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Candle is transient: it only lives for one indicator computation.
type Candle struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
}

func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

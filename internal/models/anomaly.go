package models

import "time"

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

type Anomaly struct {
	ID        int64     `json:"id"`
	AssetID   int64     `json:"assetId"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketAnomaly is a watchlist move, not tied to any user's portfolio.
type MarketAnomaly struct {
	ID        int64      `json:"id"`
	Symbol    string     `json:"symbol"`
	Class     AssetClass `json:"type"`
	Price     float64    `json:"price"`
	Message   string     `json:"message"`
	Severity  Severity   `json:"severity"`
	Timestamp time.Time  `json:"timestamp"`
}

type Alert struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

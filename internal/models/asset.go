package models

import (
	"strings"
	"time"
)

// AssetClass decides which market-data capability prices an instrument.
type AssetClass string

const (
	ClassCrypto         AssetClass = "CRYPTO"
	ClassEquityUS       AssetClass = "EQUITY_US"
	ClassEquityIN       AssetClass = "EQUITY_IN"
	ClassCommodityProxy AssetClass = "COMMODITY_PROXY"
)

// PriceSource is the way a class obtains its spot price each ingestion cycle.
type PriceSource int

const (
	// SourceBatchQuote: one multi-symbol call per cycle.
	SourceBatchQuote PriceSource = iota
	// SourceExchangeDetail: one detail lookup per instrument, country suffix stripped.
	SourceExchangeDetail
	// SourceThrottledQuote: one quote per instrument, sequential, with an enforced delay.
	SourceThrottledQuote
)

func (c AssetClass) Valid() bool {
	switch c {
	case ClassCrypto, ClassEquityUS, ClassEquityIN, ClassCommodityProxy:
		return true
	}
	return false
}

func (c AssetClass) PriceSource() PriceSource {
	switch c {
	case ClassCrypto:
		return SourceBatchQuote
	case ClassEquityIN, ClassCommodityProxy:
		return SourceExchangeDetail
	case ClassEquityUS:
		return SourceThrottledQuote
	}
	panic("models: unknown asset class " + string(c))
}

// SupportsOHLC reports whether candles can be fetched for the class.
// Equity providers offer no free historical candles.
func (c AssetClass) SupportsOHLC() bool {
	switch c {
	case ClassCrypto:
		return true
	case ClassEquityUS, ClassEquityIN, ClassCommodityProxy:
		return false
	}
	return false
}

// SupportsBackfill reports whether daily history can be loaded when an instrument is added.
func (c AssetClass) SupportsBackfill() bool {
	return c.SupportsOHLC()
}

var exchangeSuffixes = []string{".NS", ".BO"}

// ClassifyLegacy maps the legacy CRYPTO/STOCK asset types onto asset classes.
// Any already valid class passes through untouched.
func ClassifyLegacy(kind, symbol string) (AssetClass, bool) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	if c := AssetClass(kind); c.Valid() {
		return c, true
	}
	if kind != "STOCK" {
		return "", false
	}
	for _, s := range exchangeSuffixes {
		if strings.HasSuffix(strings.ToUpper(symbol), s) {
			return ClassEquityIN, true
		}
	}
	return ClassEquityUS, true
}

// ExchangeSymbol strips the country suffix (RELIANCE.NS -> RELIANCE).
func ExchangeSymbol(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, s := range exchangeSuffixes {
		if strings.HasSuffix(upper, s) {
			return symbol[:len(symbol)-len(s)]
		}
	}
	return symbol
}

type Asset struct {
	ID        int64      `json:"id"`
	Symbol    string     `json:"symbol"`
	Class     AssetClass `json:"type"`
	Name      string     `json:"name"`
	UserID    int64      `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TrackedAsset is an asset joined with the notification state of its owner.
type TrackedAsset struct {
	Asset
	Owner User `json:"owner"`
}

type User struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

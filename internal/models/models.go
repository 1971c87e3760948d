// Package models provides domain models for the trading application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange represents a domestic exchange routing code.
type Exchange string

const (
	KRX Exchange = "KRX"
	NXT Exchange = "NXT" // Nextrade
	SOR Exchange = "SOR" // Smart order routing
)

// MarketStatus represents the current KRX session.
type MarketStatus string

const (
	MarketPreOpen    MarketStatus = "PRE_OPEN"
	MarketOpen       MarketStatus = "OPEN"
	MarketClosingBid MarketStatus = "CLOSING_AUCTION"
	MarketAfterHours MarketStatus = "AFTER_HOURS"
	MarketClosed     MarketStatus = "CLOSED"
)

// Candle represents one row of a daily chart.
type Candle struct {
	Date   time.Time
	Open   int64
	High   int64
	Low    int64
	Close  int64
	Volume int64
	Value  int64 // traded value, million KRW
}

// StockInfo is a current-price snapshot of a single stock.
type StockInfo struct {
	Code         string
	Name         string
	CurrentPrice int64 // sign stripped
	Change       int64 // signed change from previous close
	ChangeRate   decimal.Decimal
	Volume       int64
}

// HighFlyer is an after-hours single-price candidate whose change rate met the threshold.
type HighFlyer struct {
	Code       string
	Name       string
	ChangeRate decimal.Decimal
	Price      int64
}

// Position represents a held stock in the account.
type Position struct {
	Code         string
	Name         string
	Quantity     int64
	AveragePrice int64
	CurrentPrice int64
}

// Value returns the position's market value at the current price.
func (p Position) Value() int64 {
	return p.Quantity * p.CurrentPrice
}

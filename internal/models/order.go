package models

import "time"

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TradeCode returns the broker's trde_tp code for the order type.
func (t OrderType) TradeCode() string {
	if t == OrderTypeMarket {
		return "03"
	}
	return "00"
}

// Order represents a stock order request.
type Order struct {
	ID        string    `json:"id"`
	StockCode string    `json:"stock_code" validate:"required,alphanum"`
	Exchange  Exchange  `json:"exchange" validate:"required,oneof=KRX NXT SOR"`
	Side      OrderSide `json:"side" validate:"required,oneof=BUY SELL"`
	Type      OrderType `json:"type" validate:"required,oneof=MARKET LIMIT"`
	Quantity  int64     `json:"quantity" validate:"gt=0"`
	Price     int64     `json:"price" validate:"gte=0"`
	Strategy  string    `json:"strategy,omitempty"`
	PlacedAt  time.Time `json:"placed_at"`
}

// OrderResult represents the result of an order placement.
type OrderResult struct {
	OrderNumber string
	Exchange    string
	Message     string
	DryRun      bool
}

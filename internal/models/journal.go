package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the outcome of a strategy run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

// Run is one invocation of a strategy.
type Run struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	DryRun     bool      `json:"dry_run"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// OrderStatus records whether the broker accepted an order.
type OrderStatus string

const (
	OrderAccepted OrderStatus = "ACCEPTED"
	OrderRejected OrderStatus = "REJECTED"
)

// OrderRecord is a journaled order attempt.
type OrderRecord struct {
	ID          int64       `json:"id"`
	RunID       string      `json:"run_id,omitempty"`
	OrderNumber string      `json:"order_no,omitempty"`
	Strategy    string      `json:"strategy,omitempty"`
	StockCode   string      `json:"stock_code"`
	Exchange    Exchange    `json:"exchange"`
	Side        OrderSide   `json:"side"`
	Type        OrderType   `json:"type"`
	Quantity    int64       `json:"quantity"`
	Price       int64       `json:"price"`
	DryRun      bool        `json:"dry_run"`
	Status      OrderStatus `json:"status"`
	Message     string      `json:"message,omitempty"`
	PlacedAt    time.Time   `json:"placed_at"`
}

// ScanRecord is one candidate returned by an after-hours ranking scan.
type ScanRecord struct {
	RunID      string          `json:"run_id,omitempty"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	ChangeRate decimal.Decimal `json:"change_rate"`
	Price      int64           `json:"price"`
	MinRate    float64         `json:"min_rate"`
	ScannedAt  time.Time       `json:"scanned_at"`
}

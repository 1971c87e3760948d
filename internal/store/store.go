// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"kiwoom-trader/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Runs
	StartRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, runID string, status models.RunStatus, errMsg string, finishedAt time.Time) error
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	GetRuns(ctx context.Context, filter RunFilter) ([]models.Run, error)

	// Orders
	LogOrder(ctx context.Context, record *models.OrderRecord) error
	GetOrders(ctx context.Context, filter OrderFilter) ([]models.OrderRecord, error)

	// Scans
	SaveScan(ctx context.Context, records []models.ScanRecord) error
	GetScans(ctx context.Context, runID string) ([]models.ScanRecord, error)

	// Candles
	SaveCandles(ctx context.Context, code string, candles []models.Candle) error
	GetCandles(ctx context.Context, code string, from, to time.Time) ([]models.Candle, error)

	// Lifecycle
	Close() error
}

// RunFilter represents filters for querying runs.
type RunFilter struct {
	Strategy  string
	Status    models.RunStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// OrderFilter represents filters for querying journaled orders.
type OrderFilter struct {
	RunID     string
	Strategy  string
	StockCode string
	Side      models.OrderSide
	DryRun    *bool
	Limit     int
}

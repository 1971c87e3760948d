// Package trading wires strategies to the broker: it routes and journals
// orders, holds the portfolio snapshot and runs a strategy once.
package trading

import (
	"context"
	"time"

	"kiwoom-trader/internal/models"
)

// Journal is the subset of the store the trading layer writes to.
type Journal interface {
	StartRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, runID string, status models.RunStatus, errMsg string, finishedAt time.Time) error
	LogOrder(ctx context.Context, record *models.OrderRecord) error
	SaveScan(ctx context.Context, records []models.ScanRecord) error
}

package trading

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
)

// PortfolioStore holds the account's positions. Reads return copies.
type PortfolioStore struct {
	mu        sync.RWMutex
	positions []models.Position
	updatedAt time.Time
	logger    zerolog.Logger
}

// NewPortfolioStore creates an empty portfolio.
func NewPortfolioStore(logger zerolog.Logger) *PortfolioStore {
	return &PortfolioStore{logger: logging.WithOperation(logger, "portfolio")}
}

// Refresh reloads positions from the account.
//
// TODO: query the account evaluation balance (kt00018) instead of clearing.
func (p *PortfolioStore) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Info().Msg("Refreshing portfolio (balance query not implemented, portfolio left empty)")
	p.Set(nil)
	return nil
}

// Set replaces the snapshot.
func (p *PortfolioStore) Set(positions []models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = append([]models.Position(nil), positions...)
	p.updatedAt = time.Now()
}

// Positions returns a copy of the held positions.
func (p *PortfolioStore) Positions() []models.Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Position, len(p.positions))
	copy(out, p.positions)
	return out
}

// Holds reports whether code is in the portfolio.
func (p *PortfolioStore) Holds(code string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pos := range p.positions {
		if pos.Code == code {
			return true
		}
	}
	return false
}

// UpdatedAt returns when the snapshot was last replaced.
func (p *PortfolioStore) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

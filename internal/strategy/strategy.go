// Package strategy defines the strategy capability, the registry strategies
// self-register into, and the bundled strategies.
package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
)

// QuoteSource is the market data a strategy may read.
type QuoteSource interface {
	CurrentPrice(ctx context.Context, codes []string) ([]models.StockInfo, error)
	AfterHoursRank(ctx context.Context, minRate float64) ([]models.HighFlyer, error)
}

// OrderPlacer submits orders on behalf of a strategy.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order models.Order) (*models.OrderResult, error)
}

// PortfolioReader exposes the held positions.
type PortfolioReader interface {
	Positions() []models.Position
	Holds(code string) bool
}

// Strategy inspects market data and places orders when its conditions hold.
// A nil error from CheckSignals means the check completed, whether or not
// any signal fired.
type Strategy interface {
	Name() string
	CheckSignals(ctx context.Context, quotes QuoteSource, orders OrderPlacer, portfolio PortfolioReader) error
}

// Factory builds a strategy from its settings block.
type Factory func(settings Settings, logger zerolog.Logger) (Strategy, error)

// Base carries what every strategy shares. Concrete strategies embed it.
type Base struct {
	name   string
	Logger zerolog.Logger
}

// NewBase creates a Base whose logger is tagged with the strategy name.
func NewBase(name string, logger zerolog.Logger) Base {
	return Base{name: name, Logger: logging.WithStrategy(logger, name)}
}

// Name returns the display name.
func (b Base) Name() string {
	return b.name
}

// ContextLogger returns the run-scoped logger carried by ctx tagged with the
// strategy name, or b.Logger when ctx carries none.
func (b Base) ContextLogger(ctx context.Context) zerolog.Logger {
	if logger, ok := logging.LoggerFrom(ctx); ok {
		return logging.WithStrategy(logger, b.name)
	}
	return b.Logger
}

// Settings is one strategy's block from the strategy settings file.
type Settings map[string]any

// Float64 returns key as a float, or def when absent.
func (s Settings) Float64(key string, def float64) (float64, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return f, nil
}

// Int64 returns key as an integer, or def when absent.
func (s Settings) Int64(key string, def int64) (int64, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		// 100000.0 is a valid amount
		f, ferr := cast.ToFloat64E(v)
		if ferr != nil {
			return def, fmt.Errorf("setting %s: %w", key, err)
		}
		n = int64(f)
	}
	return n, nil
}

// Bool returns key as a boolean, or def when absent.
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, ok := s[key]
	if !ok || v == nil {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

// String returns key as a string, or def when absent.
func (s Settings) String(key string, def string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	return cast.ToString(v)
}

func init() {
	Register(Descriptor{
		Name:     "BaseStrategy",
		Source:   "base_strategy",
		Abstract: true,
	})
}

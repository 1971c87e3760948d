package trading

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"kiwoom-trader/internal/broker"
	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
)

// RouterConfig identifies the run orders are routed for.
type RouterConfig struct {
	RunID    string
	Strategy string
	DryRun   bool
	Logger   zerolog.Logger
}

// OrderRouter passes orders to an OrderService and journals every attempt.
type OrderRouter struct {
	orders  broker.OrderService
	journal Journal
	cfg     RouterConfig
	logger  zerolog.Logger
	now     func() time.Time
}

// NewOrderRouter creates a router. journal may be nil.
func NewOrderRouter(orders broker.OrderService, journal Journal, cfg RouterConfig) *OrderRouter {
	logger := logging.WithOperation(cfg.Logger, "router")
	if cfg.RunID != "" {
		logger = logging.WithRunID(logger, cfg.RunID)
	}
	return &OrderRouter{
		orders:  orders,
		journal: journal,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// PlaceOrder submits order and records the outcome.
func (r *OrderRouter) PlaceOrder(ctx context.Context, order models.Order) (*models.OrderResult, error) {
	if order.Strategy == "" {
		order.Strategy = r.cfg.Strategy
	}
	if order.PlacedAt.IsZero() {
		order.PlacedAt = r.now()
	}

	result, err := r.orders.PlaceOrder(ctx, order)

	record := &models.OrderRecord{
		RunID:     r.cfg.RunID,
		Strategy:  order.Strategy,
		StockCode: order.StockCode,
		Exchange:  order.Exchange,
		Side:      order.Side,
		Type:      order.Type,
		Quantity:  order.Quantity,
		Price:     order.Price,
		DryRun:    r.cfg.DryRun,
		PlacedAt:  order.PlacedAt,
	}
	if record.Exchange == "" {
		record.Exchange = models.KRX
	}
	if err != nil {
		record.Status = models.OrderRejected
		record.Message = err.Error()
	} else {
		record.Status = models.OrderAccepted
		record.OrderNumber = result.OrderNumber
		record.Message = result.Message
		record.DryRun = result.DryRun
		logging.LogOrder(r.logger, result.OrderNumber, order.StockCode, string(order.Side), order.Quantity, result.DryRun)
	}

	if r.journal != nil {
		if jerr := r.journal.LogOrder(ctx, record); jerr != nil {
			r.logger.Warn().Err(jerr).Str("stock_code", order.StockCode).Msg("Failed to journal order")
		}
	}

	return result, err
}

// BuyMarket routes a market buy order.
func (r *OrderRouter) BuyMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error) {
	return r.PlaceOrder(ctx, models.Order{StockCode: code, Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: qty})
}

// SellMarket routes a market sell order.
func (r *OrderRouter) SellMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error) {
	return r.PlaceOrder(ctx, models.Order{StockCode: code, Side: models.OrderSideSell, Type: models.OrderTypeMarket, Quantity: qty})
}

// BuyLimit routes a limit buy order.
func (r *OrderRouter) BuyLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error) {
	return r.PlaceOrder(ctx, models.Order{StockCode: code, Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: qty, Price: price})
}

// SellLimit routes a limit sell order.
func (r *OrderRouter) SellLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error) {
	return r.PlaceOrder(ctx, models.Order{StockCode: code, Side: models.OrderSideSell, Type: models.OrderTypeLimit, Quantity: qty, Price: price})
}

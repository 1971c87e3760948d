package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
)

// PaperOrderClient implements OrderService without sending anything to the
// broker. Orders are validated like live ones, numbered locally and kept in
// memory so a dry run shows exactly what would have been submitted.
type PaperOrderClient struct {
	exchange models.Exchange
	logger   zerolog.Logger
	now      func() time.Time

	mu           sync.Mutex
	orders       []models.Order
	orderCounter int
}

// NewPaperOrderClient creates a dry-run order client.
func NewPaperOrderClient(exchange models.Exchange, logger zerolog.Logger) *PaperOrderClient {
	if exchange == "" {
		exchange = models.KRX
	}
	return &PaperOrderClient{
		exchange: exchange,
		logger:   logging.WithOperation(logger, "paper_order"),
		now:      time.Now,
	}
}

// PlaceOrder records the order and returns a locally numbered result.
func (p *PaperOrderClient) PlaceOrder(ctx context.Context, order models.Order) (*models.OrderResult, error) {
	if order.Exchange == "" {
		order.Exchange = p.exchange
	}
	if order.Type == models.OrderTypeMarket {
		order.Price = 0
	}
	if err := validateOrder(order); err != nil {
		return nil, apperrors.NewOrderError(order.StockCode, string(order.Side), "invalid order", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderCounter++
	order.ID = fmt.Sprintf("PAPER_%d_%d", p.now().Unix(), p.orderCounter)
	if order.PlacedAt.IsZero() {
		order.PlacedAt = p.now()
	}
	p.orders = append(p.orders, order)

	p.logger.Info().
		Str("order_no", order.ID).
		Str("stock_code", order.StockCode).
		Str("side", string(order.Side)).
		Str("type", string(order.Type)).
		Int64("quantity", order.Quantity).
		Int64("price", order.Price).
		Msg("Dry run: order not sent")

	return &models.OrderResult{
		OrderNumber: order.ID,
		Exchange:    string(order.Exchange),
		Message:     "dry run: order not sent",
		DryRun:      true,
	}, nil
}

// BuyLimit records a limit buy order.
func (p *PaperOrderClient) BuyLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error) {
	return p.PlaceOrder(ctx, p.newOrder(code, models.OrderSideBuy, models.OrderTypeLimit, qty, price))
}

// SellLimit records a limit sell order.
func (p *PaperOrderClient) SellLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error) {
	return p.PlaceOrder(ctx, p.newOrder(code, models.OrderSideSell, models.OrderTypeLimit, qty, price))
}

// BuyMarket records a market buy order.
func (p *PaperOrderClient) BuyMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error) {
	return p.PlaceOrder(ctx, p.newOrder(code, models.OrderSideBuy, models.OrderTypeMarket, qty, 0))
}

// SellMarket records a market sell order.
func (p *PaperOrderClient) SellMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error) {
	return p.PlaceOrder(ctx, p.newOrder(code, models.OrderSideSell, models.OrderTypeMarket, qty, 0))
}

// Orders returns a copy of the recorded orders in submission order.
func (p *PaperOrderClient) Orders() []models.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Order, len(p.orders))
	copy(out, p.orders)
	return out
}

func (p *PaperOrderClient) newOrder(code string, side models.OrderSide, typ models.OrderType, qty, price int64) models.Order {
	return models.Order{
		StockCode: code,
		Exchange:  p.exchange,
		Side:      side,
		Type:      typ,
		Quantity:  qty,
		Price:     price,
	}
}

package broker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
)

var orderValidator = validator.New()

// OrderConfig holds configuration for the order client.
type OrderConfig struct {
	AccountNumber string
	Exchange      models.Exchange
	Logger        zerolog.Logger
}

// OrderClient implements OrderService over the REST API.
type OrderClient struct {
	client   *Client
	account  string
	exchange models.Exchange
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOrderClient creates an order client sharing client's transport and tokens.
func NewOrderClient(client *Client, cfg OrderConfig) *OrderClient {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = models.KRX
	}
	logger := logging.WithOperation(cfg.Logger, "order")
	if cfg.AccountNumber == "" {
		logger.Warn().Msg("Account number is not configured, orders will be rejected")
	}
	return &OrderClient{
		client:   client,
		account:  cfg.AccountNumber,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
	}
}

type orderRequest struct {
	Exchange  string `json:"dmst_stex_tp"`
	Code      string `json:"stk_cd"`
	Quantity  string `json:"ord_qty"`
	Price     string `json:"ord_uv"`
	TradeType string `json:"trde_tp"`
}

type orderResponse struct {
	envelope
	OrderNumber string `json:"ord_no"`
	Exchange    string `json:"dmst_stex_tp"`
}

// PlaceOrder validates and submits order. Market orders are sent with a zero price.
func (o *OrderClient) PlaceOrder(ctx context.Context, order models.Order) (*models.OrderResult, error) {
	if order.Exchange == "" {
		order.Exchange = o.exchange
	}
	if order.Type == models.OrderTypeMarket {
		order.Price = 0
	}
	if err := validateOrder(order); err != nil {
		return nil, apperrors.NewOrderError(order.StockCode, string(order.Side), "invalid order", err)
	}
	if o.account == "" {
		return nil, apperrors.NewOrderError(order.StockCode, string(order.Side), "account number not configured", apperrors.ErrConfigInvalid)
	}

	apiID := APIBuyOrder
	if order.Side == models.OrderSideSell {
		apiID = APISellOrder
	}

	req := orderRequest{
		Exchange:  string(order.Exchange),
		Code:      order.StockCode,
		Quantity:  strconv.FormatInt(order.Quantity, 10),
		Price:     strconv.FormatInt(order.Price, 10),
		TradeType: order.Type.TradeCode(),
	}

	logger := logging.WithStock(o.logger, order.StockCode)
	var resp orderResponse
	if err := o.client.Do(ctx, apiID, PathOrder, req, &resp); err != nil {
		logger.Error().Err(err).Str("api_id", apiID).Msg("Order failed")
		return nil, apperrors.NewOrderError(order.StockCode, string(order.Side), "order request failed", err)
	}

	logger.Info().
		Str("api_id", apiID).
		Str("order_no", resp.OrderNumber).
		Str("return_msg", resp.ReturnMsg).
		Msg("Order accepted")

	return &models.OrderResult{
		OrderNumber: resp.OrderNumber,
		Exchange:    resp.Exchange,
		Message:     resp.ReturnMsg,
	}, nil
}

// BuyLimit places a limit buy order.
func (o *OrderClient) BuyLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error) {
	return o.PlaceOrder(ctx, o.newOrder(code, models.OrderSideBuy, models.OrderTypeLimit, qty, price))
}

// SellLimit places a limit sell order.
func (o *OrderClient) SellLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error) {
	return o.PlaceOrder(ctx, o.newOrder(code, models.OrderSideSell, models.OrderTypeLimit, qty, price))
}

// BuyMarket places a market buy order.
func (o *OrderClient) BuyMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error) {
	return o.PlaceOrder(ctx, o.newOrder(code, models.OrderSideBuy, models.OrderTypeMarket, qty, 0))
}

// SellMarket places a market sell order.
func (o *OrderClient) SellMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error) {
	return o.PlaceOrder(ctx, o.newOrder(code, models.OrderSideSell, models.OrderTypeMarket, qty, 0))
}

func (o *OrderClient) newOrder(code string, side models.OrderSide, typ models.OrderType, qty, price int64) models.Order {
	return models.Order{
		StockCode: code,
		Exchange:  o.exchange,
		Side:      side,
		Type:      typ,
		Quantity:  qty,
		Price:     price,
		PlacedAt:  o.now(),
	}
}

// validateOrder checks struct constraints plus the limit price rule.
func validateOrder(order models.Order) error {
	if err := orderValidator.Struct(order); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.NewValidationError(fe.Field(), fe.Value(), fmt.Sprintf("failed %s", fe.Tag()))
		}
		return err
	}
	if order.Type == models.OrderTypeLimit && order.Price <= 0 {
		return apperrors.NewValidationError("Price", order.Price, "limit orders need a positive price")
	}
	return nil
}

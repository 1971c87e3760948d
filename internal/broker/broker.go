// Package broker provides the Kiwoom REST API client: token management,
// market data queries and order placement.
package broker

import (
	"context"
	"time"

	"kiwoom-trader/internal/models"
)

// TokenSource supplies a bearer token for authenticated calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// QuoteService defines read-only market data operations.
type QuoteService interface {
	CurrentPrice(ctx context.Context, codes []string) ([]models.StockInfo, error)
	DailyChart(ctx context.Context, req ChartRequest) ([]models.Candle, error)
	AfterHoursRank(ctx context.Context, minRate float64) ([]models.HighFlyer, error)
}

// OrderService defines order placement operations.
type OrderService interface {
	PlaceOrder(ctx context.Context, order models.Order) (*models.OrderResult, error)
	BuyLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error)
	SellLimit(ctx context.Context, code string, qty, price int64) (*models.OrderResult, error)
	BuyMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error)
	SellMarket(ctx context.Context, code string, qty int64) (*models.OrderResult, error)
}

// ChartRequest represents a request for daily chart data.
type ChartRequest struct {
	Code string
	// Date is the base date; the zero value means today.
	Date time.Time
	// Unadjusted requests raw prices instead of split/dividend adjusted ones.
	Unadjusted bool
}

// API identifiers and paths of the endpoints used by this client.
const (
	APIIssueToken     = "au10001"
	APIRevokeToken    = "au10002"
	APICurrentPrice   = "ka10095"
	APIDailyChart     = "ka10081"
	APIAfterHoursRank = "ka10098"
	APIBuyOrder       = "kt10000"
	APISellOrder      = "kt10001"

	PathIssueToken  = "/oauth2/token"
	PathRevokeToken = "/oauth2/revoke"
	PathStockInfo   = "/api/dostk/stkinfo"
	PathChart       = "/api/dostk/chart"
	PathRankInfo    = "/api/dostk/rkinfo"
	PathOrder       = "/api/dostk/ordr"
)

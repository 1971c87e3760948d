package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
	"kiwoom-trader/pkg/utils"
)

// QuoteClient implements QuoteService over the REST API.
type QuoteClient struct {
	client *Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewQuoteClient creates a quote client sharing client's transport and tokens.
func NewQuoteClient(client *Client, logger zerolog.Logger) *QuoteClient {
	return &QuoteClient{
		client: client,
		logger: logging.WithOperation(logger, "quote"),
		now:    time.Now,
	}
}

type stockInfoRow struct {
	Code       string    `json:"stk_cd"`
	Name       string    `json:"stk_nm"`
	Price      apiString `json:"cur_prc"`
	Change     apiString `json:"pred_pre"`
	ChangeRate apiString `json:"flu_rt"`
	Volume     apiString `json:"trde_qty"`
}

type currentPriceResponse struct {
	Rows []stockInfoRow `json:"atn_stk_infr"`
}

// CurrentPrice fetches current price information for one or more stocks (ka10095).
func (q *QuoteClient) CurrentPrice(ctx context.Context, codes []string) ([]models.StockInfo, error) {
	if len(codes) == 0 {
		return nil, apperrors.NewValidationError("codes", codes, "at least one stock code is required")
	}
	q.logger.Debug().Strs("codes", codes).Msg("Requesting current price")

	var resp currentPriceResponse
	body := map[string]string{"stk_cd": strings.Join(codes, "|")}
	if err := q.client.Do(ctx, APICurrentPrice, PathStockInfo, body, &resp); err != nil {
		return nil, fmt.Errorf("current price %v: %w", codes, err)
	}

	result := make([]models.StockInfo, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		change, _ := parseSignedInt(row.Change)
		volume, _ := parseSignedInt(row.Volume)
		result = append(result, models.StockInfo{
			Code:         strings.TrimSpace(row.Code),
			Name:         strings.TrimSpace(row.Name),
			CurrentPrice: parsePrice(row.Price),
			Change:       change,
			ChangeRate:   parseRate(row.ChangeRate),
			Volume:       volume,
		})
	}
	return result, nil
}

type chartRow struct {
	Date   string    `json:"dt"`
	Open   apiString `json:"open_pric"`
	High   apiString `json:"high_pric"`
	Low    apiString `json:"low_pric"`
	Close  apiString `json:"cur_prc"`
	Volume apiString `json:"trde_qty"`
	Value  apiString `json:"trde_prica"`
}

type dailyChartResponse struct {
	Code string     `json:"stk_cd"`
	Rows []chartRow `json:"stk_dt_pole_chart_qry"`
}

// DailyChart fetches daily candles up to the base date (ka10081).
func (q *QuoteClient) DailyChart(ctx context.Context, req ChartRequest) ([]models.Candle, error) {
	if req.Code == "" {
		return nil, apperrors.NewValidationError("code", req.Code, "stock code is required")
	}

	date := req.Date
	if date.IsZero() {
		date = q.now()
	}
	adjusted := "1"
	if req.Unadjusted {
		adjusted = "0"
	}
	q.logger.Debug().Str("code", req.Code).Str("base_dt", utils.BaseDate(date)).Msg("Requesting daily chart")

	var resp dailyChartResponse
	body := map[string]string{
		"stk_cd":       req.Code,
		"base_dt":      utils.BaseDate(date),
		"upd_stkpc_tp": adjusted,
	}
	if err := q.client.Do(ctx, APIDailyChart, PathChart, body, &resp); err != nil {
		return nil, fmt.Errorf("daily chart %s: %w", req.Code, err)
	}

	candles := make([]models.Candle, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		day, err := time.ParseInLocation(utils.BaseDateLayout, strings.TrimSpace(row.Date), utils.SeoulLocation)
		if err != nil {
			q.logger.Warn().Str("dt", row.Date).Msg("Skipping chart row with invalid date")
			continue
		}
		volume, _ := parseSignedInt(row.Volume)
		value, _ := parseSignedInt(row.Value)
		candles = append(candles, models.Candle{
			Date:   day,
			Open:   parsePrice(row.Open),
			High:   parsePrice(row.High),
			Low:    parsePrice(row.Low),
			Close:  parsePrice(row.Close),
			Volume: volume,
			Value:  value,
		})
	}
	return candles, nil
}

type rankRow struct {
	Code       string    `json:"stk_cd"`
	Name       string    `json:"stk_nm"`
	Price      apiString `json:"cur_prc"`
	ChangeRate apiString `json:"flu_rt"`
}

type afterHoursRankResponse struct {
	Rows []rankRow `json:"ovt_sigpric_flu_rt_rank"`
}

// afterHoursRankBody scans all markets sorted by rise rate with no filters.
var afterHoursRankBody = map[string]string{
	"mrkt_tp":      "000",
	"sort_base":    "1",
	"stk_cnd":      "0",
	"trde_qty_cnd": "0",
	"crd_cnd":      "0",
	"trde_prica":   "0",
}

// AfterHoursRank scans the after-hours single-price change rate ranking
// (ka10098) and returns the stocks whose rate is at least minRate, in the
// order the broker ranked them.
func (q *QuoteClient) AfterHoursRank(ctx context.Context, minRate float64) ([]models.HighFlyer, error) {
	q.logger.Debug().Float64("min_rate", minRate).Msg("Scanning after-hours ranking")

	var resp afterHoursRankResponse
	if err := q.client.Do(ctx, APIAfterHoursRank, PathRankInfo, afterHoursRankBody, &resp); err != nil {
		return nil, fmt.Errorf("after-hours rank: %w", err)
	}

	return filterHighFlyers(resp.Rows, decimal.NewFromFloat(minRate)), nil
}

// filterHighFlyers keeps rows whose change rate is >= threshold, preserving order.
func filterHighFlyers(rows []rankRow, threshold decimal.Decimal) []models.HighFlyer {
	found := make([]models.HighFlyer, 0)
	for _, row := range rows {
		rate := parseRate(row.ChangeRate)
		if rate.LessThan(threshold) {
			continue
		}
		found = append(found, models.HighFlyer{
			Code:       strings.TrimSpace(row.Code),
			Name:       strings.TrimSpace(row.Name),
			ChangeRate: rate,
			Price:      parsePrice(row.Price),
		})
	}
	return found
}

package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
	"kiwoom-trader/pkg/utils"
)

// AfterHoursStrategyName is the registry key of AfterHoursStrategy.
const AfterHoursStrategyName = "AfterHoursStrategy"

const (
	defaultTargetRate       = 10.0
	defaultInvestmentAmount = 100000
)

// AfterHoursStrategy buys, at the next open, stocks that surged in the
// previous after-hours single-price session.
type AfterHoursStrategy struct {
	Base
	TargetRate       float64
	InvestmentAmount int64
	// ExecuteOrders gates order placement. When false the strategy only
	// logs what it would buy.
	ExecuteOrders bool
}

// NewAfterHoursStrategy builds the strategy from settings. Recognised keys are
// target_rate, investment_amount and execute_orders.
func NewAfterHoursStrategy(settings Settings, logger zerolog.Logger) (Strategy, error) {
	rate, err := settings.Float64("target_rate", defaultTargetRate)
	if err != nil {
		return nil, err
	}
	amount, err := settings.Int64("investment_amount", defaultInvestmentAmount)
	if err != nil {
		return nil, err
	}
	execute, err := settings.Bool("execute_orders", false)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, fmt.Errorf("investment_amount must not be negative, got %d", amount)
	}

	return &AfterHoursStrategy{
		Base:             NewBase("시간외 급등주 익일 시초가 매수 전략", logger),
		TargetRate:       rate,
		InvestmentAmount: amount,
		ExecuteOrders:    execute,
	}, nil
}

// CheckSignals scans the after-hours ranking and buys every qualifying stock
// not already held, sizing each position to InvestmentAmount at market.
func (s *AfterHoursStrategy) CheckSignals(ctx context.Context, quotes QuoteSource, orders OrderPlacer, portfolio PortfolioReader) error {
	logger := s.ContextLogger(ctx)
	logger.Info().
		Float64("target_rate", s.TargetRate).
		Str("investment", utils.FormatWon(s.InvestmentAmount)).
		Bool("execute_orders", s.ExecuteOrders).
		Msg("Running strategy")

	flyers, err := quotes.AfterHoursRank(ctx, s.TargetRate)
	if err != nil {
		return apperrors.NewStrategyError(AfterHoursStrategyName, "after-hours rank", err)
	}
	if len(flyers) == 0 {
		logger.Info().Msg("No candidates to analyze")
		return nil
	}

	names := make([]string, len(flyers))
	for i, f := range flyers {
		names[i] = f.Name
	}
	logger.Info().Strs("candidates", names).Msg("After-hours high flyers found")

	var failures []error
	for _, flyer := range flyers {
		if err := ctx.Err(); err != nil {
			return err
		}
		stockLog := logging.WithStock(logger, flyer.Code).With().Str("name", flyer.Name).Logger()

		if portfolio.Holds(flyer.Code) {
			stockLog.Info().Msg("Already held, skipping")
			continue
		}

		infos, err := quotes.CurrentPrice(ctx, []string{flyer.Code})
		if err != nil {
			stockLog.Warn().Err(err).Msg("Current price unavailable, skipping")
			continue
		}
		if len(infos) == 0 {
			continue
		}

		price := infos[0].CurrentPrice
		if price < 0 {
			price = -price
		}
		if price == 0 {
			stockLog.Warn().Msg("Current price unavailable, cannot size order")
			continue
		}

		qty := s.InvestmentAmount / price
		if qty == 0 {
			stockLog.Warn().
				Str("price", utils.FormatWon(price)).
				Msg("Investment amount too small to buy a single share")
			continue
		}

		logging.LogSignal(stockLog, flyer.Code, flyer.Name, string(models.OrderSideBuy), qty)
		if !s.ExecuteOrders {
			stockLog.Info().Int64("quantity", qty).Msg("Order execution disabled, market buy not placed")
			continue
		}

		_, err = orders.PlaceOrder(ctx, models.Order{
			StockCode: flyer.Code,
			Side:      models.OrderSideBuy,
			Type:      models.OrderTypeMarket,
			Quantity:  qty,
			Strategy:  AfterHoursStrategyName,
		})
		if err != nil {
			stockLog.Error().Err(err).Msg("Market buy failed")
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return apperrors.NewStrategyError(AfterHoursStrategyName, "place orders", errors.Join(failures...))
	}
	return nil
}

func init() {
	Register(Descriptor{
		Name:        AfterHoursStrategyName,
		Source:      "after_hours_strategy",
		Description: "Buys yesterday's after-hours surgers at the next open",
		Factory:     NewAfterHoursStrategy,
	})
}

package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/models"
)

type fakeQuotes struct {
	flyers   []models.HighFlyer
	rankErr  error
	prices   map[string]int64
	priceErr map[string]error
	minRate  float64
	priced   []string
}

func (f *fakeQuotes) AfterHoursRank(_ context.Context, minRate float64) ([]models.HighFlyer, error) {
	f.minRate = minRate
	return f.flyers, f.rankErr
}

func (f *fakeQuotes) CurrentPrice(_ context.Context, codes []string) ([]models.StockInfo, error) {
	f.priced = append(f.priced, codes...)
	if err := f.priceErr[codes[0]]; err != nil {
		return nil, err
	}
	price, ok := f.prices[codes[0]]
	if !ok {
		return nil, nil
	}
	return []models.StockInfo{{Code: codes[0], CurrentPrice: price}}, nil
}

type fakeOrders struct {
	placed []models.Order
	err    error
}

func (f *fakeOrders) PlaceOrder(_ context.Context, order models.Order) (*models.OrderResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.placed = append(f.placed, order)
	return &models.OrderResult{OrderNumber: "1"}, nil
}

type fakePortfolio struct {
	positions []models.Position
}

func (f fakePortfolio) Positions() []models.Position { return f.positions }

func (f fakePortfolio) Holds(code string) bool {
	for _, p := range f.positions {
		if p.Code == code {
			return true
		}
	}
	return false
}

func flyer(code, name string, rate float64) models.HighFlyer {
	return models.HighFlyer{Code: code, Name: name, ChangeRate: decimal.NewFromFloat(rate)}
}

func newAfterHours(t *testing.T, settings Settings) *AfterHoursStrategy {
	t.Helper()
	s, err := NewAfterHoursStrategy(settings, zerolog.Nop())
	require.NoError(t, err)
	return s.(*AfterHoursStrategy)
}

func TestAfterHoursDefaults(t *testing.T) {
	s := newAfterHours(t, nil)
	assert.Equal(t, 10.0, s.TargetRate)
	assert.Equal(t, int64(100000), s.InvestmentAmount)
	assert.False(t, s.ExecuteOrders)
	assert.NotEmpty(t, s.Name())
}

func TestAfterHoursSettings(t *testing.T) {
	s := newAfterHours(t, Settings{"target_rate": 7, "investment_amount": 500000.0, "execute_orders": "true"})
	assert.Equal(t, 7.0, s.TargetRate)
	assert.Equal(t, int64(500000), s.InvestmentAmount)
	assert.True(t, s.ExecuteOrders)

	_, err := NewAfterHoursStrategy(Settings{"target_rate": "lots"}, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewAfterHoursStrategy(Settings{"investment_amount": -1}, zerolog.Nop())
	assert.Error(t, err)
}

func TestAfterHoursPlacesSizedMarketBuys(t *testing.T) {
	quotes := &fakeQuotes{
		flyers: []models.HighFlyer{
			flyer("005930", "삼성전자", 12),
			flyer("000660", "SK하이닉스", 11),
			flyer("035420", "NAVER", 15.5),
			flyer("051910", "LG화학", 10),
			flyer("999999", "Ghost", 20),
		},
		prices: map[string]int64{
			"005930": 30000,
			"000660": 120000,
			"051910": -45000,
			"999999": 0,
		},
		priceErr: map[string]error{"035420": errors.New("timeout")},
	}
	orders := &fakeOrders{}
	s := newAfterHours(t, Settings{"execute_orders": true})

	err := s.CheckSignals(context.Background(), quotes, orders, fakePortfolio{})
	require.NoError(t, err)
	assert.Equal(t, 10.0, quotes.minRate)

	require.Len(t, orders.placed, 2)
	assert.Equal(t, "005930", orders.placed[0].StockCode)
	assert.Equal(t, int64(3), orders.placed[0].Quantity)
	assert.Equal(t, models.OrderTypeMarket, orders.placed[0].Type)
	assert.Equal(t, models.OrderSideBuy, orders.placed[0].Side)
	assert.Equal(t, AfterHoursStrategyName, orders.placed[0].Strategy)
	assert.Equal(t, "051910", orders.placed[1].StockCode)
	assert.Equal(t, int64(2), orders.placed[1].Quantity, "the price sign is stripped")
}

func TestAfterHoursSkipsHeldStocks(t *testing.T) {
	quotes := &fakeQuotes{
		flyers: []models.HighFlyer{flyer("005930", "삼성전자", 12), flyer("000660", "SK하이닉스", 11)},
		prices: map[string]int64{"005930": 1000, "000660": 1000},
	}
	orders := &fakeOrders{}
	portfolio := fakePortfolio{positions: []models.Position{{Code: "005930", Quantity: 5}}}
	s := newAfterHours(t, Settings{"execute_orders": true})

	require.NoError(t, s.CheckSignals(context.Background(), quotes, orders, portfolio))
	assert.Equal(t, []string{"000660"}, quotes.priced, "held stocks are not priced")
	require.Len(t, orders.placed, 1)
	assert.Equal(t, "000660", orders.placed[0].StockCode)
}

func TestAfterHoursOrdersDisabledByDefault(t *testing.T) {
	quotes := &fakeQuotes{
		flyers: []models.HighFlyer{flyer("005930", "삼성전자", 12)},
		prices: map[string]int64{"005930": 1000},
	}
	orders := &fakeOrders{}
	s := newAfterHours(t, nil)

	require.NoError(t, s.CheckSignals(context.Background(), quotes, orders, fakePortfolio{}))
	assert.Empty(t, orders.placed)
	assert.Equal(t, []string{"005930"}, quotes.priced)
}

func TestAfterHoursNoCandidates(t *testing.T) {
	quotes := &fakeQuotes{}
	orders := &fakeOrders{}
	s := newAfterHours(t, Settings{"execute_orders": true})

	require.NoError(t, s.CheckSignals(context.Background(), quotes, orders, fakePortfolio{}))
	assert.Empty(t, quotes.priced)
	assert.Empty(t, orders.placed)
}

func TestAfterHoursErrors(t *testing.T) {
	s := newAfterHours(t, Settings{"execute_orders": true})

	rankErr := errors.New("rank down")
	err := s.CheckSignals(context.Background(), &fakeQuotes{rankErr: rankErr}, &fakeOrders{}, fakePortfolio{})
	require.Error(t, err)
	assert.ErrorIs(t, err, rankErr)
	var se *apperrors.StrategyError
	assert.ErrorAs(t, err, &se)

	orderErr := errors.New("rejected")
	quotes := &fakeQuotes{
		flyers: []models.HighFlyer{flyer("005930", "삼성전자", 12)},
		prices: map[string]int64{"005930": 1000},
	}
	err = s.CheckSignals(context.Background(), quotes, &fakeOrders{err: orderErr}, fakePortfolio{})
	assert.ErrorIs(t, err, orderErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.CheckSignals(ctx, quotes, &fakeOrders{}, fakePortfolio{})
	assert.ErrorIs(t, err, context.Canceled)
}

// Property: the order quantity is the whole number of shares the investment buys.
func TestProperty_AfterHoursQuantity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("qty = amount / |price|, zero quantity places nothing", prop.ForAll(
		func(amount, price int64) bool {
			quotes := &fakeQuotes{
				flyers: []models.HighFlyer{flyer("005930", "삼성전자", 12)},
				prices: map[string]int64{"005930": price},
			}
			orders := &fakeOrders{}
			s := &AfterHoursStrategy{
				Base:             NewBase("test", zerolog.Nop()),
				TargetRate:       10,
				InvestmentAmount: amount,
				ExecuteOrders:    true,
			}
			if err := s.CheckSignals(context.Background(), quotes, orders, fakePortfolio{}); err != nil {
				return false
			}
			abs := price
			if abs < 0 {
				abs = -abs
			}
			want := amount / abs
			if want == 0 {
				return len(orders.placed) == 0
			}
			return len(orders.placed) == 1 && orders.placed[0].Quantity == want
		},
		gen.Int64Range(0, 10_000_000),
		gen.Int64Range(-2_000_000, 2_000_000).SuchThat(func(v int64) bool { return v != 0 }),
	))

	properties.TestingRun(t)
}

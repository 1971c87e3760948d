package broker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/models"
)

func newTestOrderClient(f *fakeKiwoom, account string) *OrderClient {
	return NewOrderClient(f.client(), OrderConfig{
		AccountNumber: account,
		Exchange:      models.KRX,
		Logger:        zerolog.Nop(),
	})
}

func TestBuyMarketSendsMarketOrder(t *testing.T) {
	f := newFakeKiwoom(t)
	f.respond(APIBuyOrder, `{"ord_no":"0000139","dmst_stex_tp":"KRX","return_code":0,"return_msg":"매수주문이 완료되었습니다"}`)
	o := newTestOrderClient(f, "8012345611")

	result, err := o.BuyMarket(context.Background(), "005930", 10)
	require.NoError(t, err)
	assert.Equal(t, "0000139", result.OrderNumber)
	assert.Equal(t, "KRX", result.Exchange)
	assert.False(t, result.DryRun)

	calls := f.calls(APIBuyOrder)
	require.Len(t, calls, 1)
	body := calls[0].Body
	assert.Equal(t, PathOrder, calls[0].Path)
	assert.Equal(t, "KRX", body["dmst_stex_tp"])
	assert.Equal(t, "005930", body["stk_cd"])
	assert.Equal(t, "10", body["ord_qty"])
	assert.Equal(t, "0", body["ord_uv"])
	assert.Equal(t, "03", body["trde_tp"])
}

func TestSellLimitSendsLimitOrder(t *testing.T) {
	f := newFakeKiwoom(t)
	f.respond(APISellOrder, `{"ord_no":"0000140","dmst_stex_tp":"KRX","return_code":0,"return_msg":"ok"}`)
	o := newTestOrderClient(f, "8012345611")

	_, err := o.SellLimit(context.Background(), "000660", 3, 121500)
	require.NoError(t, err)

	calls := f.calls(APISellOrder)
	require.Len(t, calls, 1)
	assert.Equal(t, "121500", calls[0].Body["ord_uv"])
	assert.Equal(t, "00", calls[0].Body["trde_tp"])
	assert.Empty(t, f.calls(APIBuyOrder))
}

func TestPlaceOrderMarketIgnoresPrice(t *testing.T) {
	f := newFakeKiwoom(t)
	f.respond(APIBuyOrder, `{"ord_no":"1","return_code":0}`)
	o := newTestOrderClient(f, "8012345611")

	_, err := o.PlaceOrder(context.Background(), models.Order{
		StockCode: "005930",
		Side:      models.OrderSideBuy,
		Type:      models.OrderTypeMarket,
		Quantity:  1,
		Price:     99999,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", f.calls(APIBuyOrder)[0].Body["ord_uv"])
	assert.Equal(t, "KRX", f.calls(APIBuyOrder)[0].Body["dmst_stex_tp"])
}

func TestPlaceOrderRejectsInvalidOrders(t *testing.T) {
	cases := map[string]models.Order{
		"zero quantity":     {StockCode: "005930", Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 0},
		"missing code":      {Side: models.OrderSideBuy, Type: models.OrderTypeMarket, Quantity: 1},
		"limit without px":  {StockCode: "005930", Side: models.OrderSideBuy, Type: models.OrderTypeLimit, Quantity: 1},
		"unknown exchange":  {StockCode: "005930", Exchange: "NYSE", Side: models.OrderSideSell, Type: models.OrderTypeMarket, Quantity: 1},
		"malformed code":    {StockCode: "00-593", Side: models.OrderSideSell, Type: models.OrderTypeMarket, Quantity: 1},
		"negative quantity": {StockCode: "005930", Side: models.OrderSideSell, Type: models.OrderTypeLimit, Quantity: -5, Price: 100},
	}

	for name, order := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFakeKiwoom(t)
			o := newTestOrderClient(f, "8012345611")

			_, err := o.PlaceOrder(context.Background(), order)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)

			var oe *apperrors.OrderError
			assert.ErrorAs(t, err, &oe)
			assert.EqualValues(t, 0, f.issued.Load(), "nothing is sent for an invalid order")
		})
	}
}

func TestPlaceOrderRequiresAccount(t *testing.T) {
	f := newFakeKiwoom(t)
	o := newTestOrderClient(f, "")

	_, err := o.BuyMarket(context.Background(), "005930", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
	assert.Empty(t, f.calls(APIBuyOrder))
}

func TestPlaceOrderBrokerRejection(t *testing.T) {
	f := newFakeKiwoom(t)
	f.respond(APIBuyOrder, `{"return_code":20,"return_msg":"주문가능금액이 부족합니다"}`)
	o := newTestOrderClient(f, "8012345611")

	result, err := o.BuyLimit(context.Background(), "005930", 1, 70000)
	require.Error(t, err)
	assert.Nil(t, result)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 20, apiErr.Code)
	assert.Equal(t, APIBuyOrder, apiErr.APIID)
}

func TestPaperOrderClientRecordsOrders(t *testing.T) {
	p := NewPaperOrderClient("", zerolog.Nop())
	ctx := context.Background()

	first, err := p.BuyMarket(ctx, "005930", 12)
	require.NoError(t, err)
	second, err := p.SellLimit(ctx, "000660", 2, 120000)
	require.NoError(t, err)

	assert.True(t, first.DryRun)
	assert.True(t, second.DryRun)
	assert.Equal(t, "KRX", first.Exchange)
	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	assert.Regexp(t, `^PAPER_\d+_1$`, first.OrderNumber)
	assert.Regexp(t, `^PAPER_\d+_2$`, second.OrderNumber)

	orders := p.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, models.OrderSideBuy, orders[0].Side)
	assert.Equal(t, models.OrderTypeMarket, orders[0].Type)
	assert.Equal(t, int64(0), orders[0].Price)
	assert.Equal(t, int64(120000), orders[1].Price)
	assert.False(t, orders[1].PlacedAt.IsZero())

	orders[0].Quantity = 999
	assert.Equal(t, int64(12), p.Orders()[0].Quantity, "Orders returns a copy")
}

func TestPaperOrderClientValidates(t *testing.T) {
	p := NewPaperOrderClient(models.KRX, zerolog.Nop())

	_, err := p.BuyLimit(context.Background(), "005930", 1, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrder)
	assert.Empty(t, p.Orders())
}

var (
	_ OrderService = (*OrderClient)(nil)
	_ OrderService = (*PaperOrderClient)(nil)
	_ QuoteService = (*QuoteClient)(nil)
	_ TokenSource  = (*TokenGuard)(nil)
)

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kiwoom-trader/internal/models"
	"kiwoom-trader/internal/trading"
)

// manualStrategy tags orders placed from the command line in the journal.
const manualStrategy = "manual"

func newOrderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place a single order",
		Long: `Place a buy or sell order for one stock.

Orders are paper-traded while dry-run is on. Pass --live to send the
order to the broker; this requires KIWOOM_ACCOUNT_NUMBER.`,
	}
	cmd.AddCommand(newOrderSideCmd(app, models.OrderSideBuy))
	cmd.AddCommand(newOrderSideCmd(app, models.OrderSideSell))
	return cmd
}

func newOrderSideCmd(app *App, side models.OrderSide) *cobra.Command {
	verb := "buy"
	if side == models.OrderSideSell {
		verb = "sell"
	}

	cmd := &cobra.Command{
		Use:     verb + " <code> <quantity>",
		Short:   fmt.Sprintf("Place a %s order (market unless --price is set)", verb),
		Example: fmt.Sprintf("  trader order %s 005930 10\n  trader order %s 005930 10 --price 70000 --live", verb, verb),
		Args:    usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || qty <= 0 {
				return &ExitError{Code: ExitUsage, Err: fmt.Errorf("invalid quantity %q", args[1])}
			}
			price, _ := cmd.Flags().GetInt64("price")

			dryRun := app.Config.Trading.DryRun
			if live, _ := cmd.Flags().GetBool("live"); live {
				dryRun = false
			}
			if !dryRun {
				if err := app.Config.ValidateAccount(); err != nil {
					return failure(err)
				}
			}

			orders, err := app.orderService(dryRun)
			if err != nil {
				return failure(err)
			}
			router := trading.NewOrderRouter(orders, app.tradingJournal(), trading.RouterConfig{
				Strategy: manualStrategy,
				DryRun:   dryRun,
				Logger:   app.Logger,
			})

			order := models.Order{
				StockCode: args[0],
				Side:      side,
				Type:      models.OrderTypeMarket,
				Quantity:  qty,
			}
			if price > 0 {
				order.Type = models.OrderTypeLimit
				order.Price = price
			}

			result, err := router.PlaceOrder(cmd.Context(), order)
			if err != nil {
				return failure(err)
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			output.Success("✓ %s order accepted [%s]", verb, ModeLabel(result.DryRun))
			output.Printf("  Order No:  %s\n", result.OrderNumber)
			output.Printf("  Stock:     %s\n", order.StockCode)
			output.Printf("  Quantity:  %d\n", order.Quantity)
			if order.Type == models.OrderTypeLimit {
				output.Printf("  Price:     %s\n", FormatPrice(order.Price))
			} else {
				output.Printf("  Price:     market\n")
			}
			if result.Message != "" {
				output.Dim("  %s", result.Message)
			}
			return nil
		},
	}
	cmd.Flags().Int64("price", 0, "limit price in KRW, 0 for a market order")
	cmd.Flags().Bool("live", false, "send the order to the broker even in dry-run mode")
	return cmd
}

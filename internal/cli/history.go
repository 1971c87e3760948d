package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"kiwoom-trader/internal/models"
	"kiwoom-trader/internal/store"
	"kiwoom-trader/pkg/utils"
)

var errJournalDisabled = errors.New("journal is disabled, set store.enabled in config.yaml")

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled strategy runs and orders",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			output := NewOutput(cmd)

			journal := app.journal()
			if journal == nil {
				return failure(errJournalDisabled)
			}

			limit, _ := cmd.Flags().GetInt("limit")
			name, _ := cmd.Flags().GetString("strategy")
			showOrders, _ := cmd.Flags().GetBool("orders")

			if showOrders {
				orders, err := journal.GetOrders(ctx, store.OrderFilter{Strategy: name, Limit: limit})
				if err != nil {
					return failure(err)
				}
				if output.IsJSON() {
					return output.JSON(orders)
				}
				if len(orders) == 0 {
					output.Dim("No orders journaled")
					return nil
				}
				renderOrders(output, orders)
				return nil
			}

			runs, err := journal.GetRuns(ctx, store.RunFilter{Strategy: name, Limit: limit})
			if err != nil {
				return failure(err)
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No runs journaled")
				return nil
			}

			table := NewTable(output, "STARTED", "RUN", "STRATEGY", "MODE", "STATUS", "DURATION")
			for _, r := range runs {
				status := string(r.Status)
				switch r.Status {
				case models.RunSucceeded:
					status = output.Green(status)
				case models.RunFailed:
					status = output.Red(status)
				}
				table.AddRow(
					FormatDateTime(r.StartedAt),
					output.DimText(TruncateString(r.ID, 8)),
					r.Strategy,
					ModeLabel(r.DryRun),
					status,
					FormatDuration(r.Duration()),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum rows to show")
	cmd.Flags().String("strategy", "", "only show this strategy")
	cmd.Flags().Bool("orders", false, "show orders instead of runs")
	return cmd
}

func newMarketCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "market",
		Short:       "Show the KRX session status",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			status := utils.GetMarketStatus()
			next := utils.GetNextMarketOpen(time.Now())

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"status":    status,
					"open":      utils.IsMarketOpen(),
					"base_date": utils.Today(),
					"next_open": next,
				})
			}

			output.Printf("KRX:        %s\n", output.MarketStatus(status))
			output.Printf("Base date:  %s\n", utils.Today())
			output.Printf("Next open:  %s\n", FormatDateTime(next))
			return nil
		},
	}
}

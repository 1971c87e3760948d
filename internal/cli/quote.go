package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kiwoom-trader/internal/broker"
	"kiwoom-trader/pkg/utils"
)

func newQuoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Market data queries",
	}
	cmd.AddCommand(newPriceCmd(app))
	cmd.AddCommand(newChartCmd(app))
	cmd.AddCommand(newAfterHoursCmd(app))
	return cmd
}

func newPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "price <code>...",
		Short:   "Show current prices (ka10095)",
		Example: "  trader quote price 005930 000660",
		Args:    usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			quotes, err := app.quoteService()
			if err != nil {
				return failure(err)
			}

			infos, err := quotes.CurrentPrice(cmd.Context(), args)
			if err != nil {
				return failure(err)
			}
			if output.IsJSON() {
				return output.JSON(infos)
			}

			if len(infos) == 0 {
				output.Warning("No quotes returned for %s", joinOrDash(args))
				return nil
			}
			table := NewTable(output, "CODE", "NAME", "PRICE", "CHANGE", "RATE", "VOLUME")
			for _, info := range infos {
				table.AddRow(
					info.Code,
					TruncateString(info.Name, 16),
					FormatPrice(info.CurrentPrice),
					output.Change(info.Change),
					output.Rate(info.ChangeRate),
					FormatVolume(info.Volume),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newChartCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chart <code>",
		Short:   "Show the daily chart (ka10081)",
		Example: "  trader quote chart 005930 --date 20260930 --limit 5 --save",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			output := NewOutput(cmd)

			req := broker.ChartRequest{Code: args[0]}
			if adjusted, _ := cmd.Flags().GetBool("adjusted"); !adjusted {
				req.Unadjusted = true
			}
			if date, _ := cmd.Flags().GetString("date"); date != "" {
				t, err := time.ParseInLocation(utils.BaseDateLayout, date, utils.SeoulLocation)
				if err != nil {
					return &ExitError{Code: ExitUsage, Err: fmt.Errorf("invalid --date %q, want YYYYMMDD", date)}
				}
				req.Date = t
			}

			quotes, err := app.quoteService()
			if err != nil {
				return failure(err)
			}
			candles, err := quotes.DailyChart(ctx, req)
			if err != nil {
				return failure(err)
			}

			if save, _ := cmd.Flags().GetBool("save"); save {
				journal := app.journal()
				if journal == nil {
					output.Warning("Journal is disabled, candles not saved")
				} else if err := journal.SaveCandles(ctx, req.Code, candles); err != nil {
					return failure(err)
				} else if !output.IsJSON() {
					output.Success("✓ Saved %d candles for %s", len(candles), req.Code)
				}
			}

			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(candles) > limit {
				candles = candles[:limit]
			}

			if output.IsJSON() {
				return output.JSON(candles)
			}
			if len(candles) == 0 {
				output.Warning("No chart data for %s", req.Code)
				return nil
			}

			table := NewTable(output, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
			for _, c := range candles {
				table.AddRow(
					FormatDate(c.Date),
					FormatPrice(c.Open),
					FormatPrice(c.High),
					FormatPrice(c.Low),
					FormatPrice(c.Close),
					FormatVolume(c.Volume),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("date", "", "base date YYYYMMDD (default: today)")
	cmd.Flags().Bool("adjusted", true, "request split/dividend adjusted prices")
	cmd.Flags().Int("limit", 20, "rows to show, 0 for all")
	cmd.Flags().Bool("save", false, "store the candles in the journal")
	return cmd
}

func newAfterHoursCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "afterhours",
		Aliases: []string{"ah"},
		Short:   "Show after-hours single-price surgers (ka10098)",
		Example: "  trader quote afterhours --rate 15",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			rate, _ := cmd.Flags().GetFloat64("rate")

			quotes, err := app.quoteService()
			if err != nil {
				return failure(err)
			}
			flyers, err := quotes.AfterHoursRank(cmd.Context(), rate)
			if err != nil {
				return failure(err)
			}

			if output.IsJSON() {
				return output.JSON(flyers)
			}
			if len(flyers) == 0 {
				output.Info("No stocks at or above %.2f%%", rate)
				return nil
			}

			table := NewTable(output, "CODE", "NAME", "RATE", "PRICE")
			for _, f := range flyers {
				table.AddRow(f.Code, TruncateString(f.Name, 16), output.Rate(f.ChangeRate), FormatPrice(f.Price))
			}
			table.Render()
			output.Println()
			output.Dim("%d stocks at or above %.2f%%", len(flyers), rate)
			return nil
		},
	}
	cmd.Flags().Float64("rate", 10, "minimum change rate in percent")
	return cmd
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kiwoom-trader/internal/broker"
	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/models"
	"kiwoom-trader/internal/store"
	"kiwoom-trader/internal/trading"
)

// runSummary is the JSON shape of a finished strategy run.
type runSummary struct {
	Run    *models.Run          `json:"run"`
	Orders []models.OrderRecord `json:"orders"`
}

func missingStrategy(cmd *cobra.Command, app *App) error {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Usage: %s\n", cmd.UseLine())
	printStrategyNames(w, app.Registry.Names(app.Logger))
	return reported(ExitUsage, apperrors.ErrMissingStrategy)
}

func printStrategyNames(w io.Writer, names []string) {
	fmt.Fprintln(w, "Available strategies:")
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, name := range names {
		fmt.Fprintf(w, "  - %s\n", name)
	}
}

func runStrategy(cmd *cobra.Command, app *App, name string) error {
	ctx := cmd.Context()
	output := NewOutput(cmd)

	if _, err := app.Registry.Lookup(name, app.Logger); err != nil {
		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "Unknown strategy: %s\n", name)
		printStrategyNames(w, app.Registry.Names(app.Logger))
		return reported(ExitFailure, err)
	}

	quotes, err := app.quoteService()
	if err != nil {
		return failure(err)
	}
	dryRun := app.Config.Trading.DryRun
	orders, err := app.orderService(dryRun)
	if err != nil {
		return failure(err)
	}

	runner := trading.NewRunner(trading.RunnerConfig{
		Registry: app.Registry,
		Settings: app.Config.Strategies,
		Quotes:   quotes,
		Orders:   orders,
		Journal:  app.tradingJournal(),
		DryRun:   dryRun,
		Logger:   app.Logger,
	})

	run, runErr := runner.Run(ctx, name)
	if run == nil {
		if isUnknownStrategy(runErr) {
			return reported(ExitFailure, runErr)
		}
		return failure(runErr)
	}

	records := runOrders(cmd, app, run, orders)
	if output.IsJSON() {
		if err := output.JSON(runSummary{Run: run, Orders: records}); err != nil {
			return failure(err)
		}
		return failure(runErr)
	}

	renderRun(output, run, records)
	return failure(runErr)
}

// runOrders returns the orders a run placed, from the journal when it is
// open and from the paper client otherwise.
func runOrders(cmd *cobra.Command, app *App, run *models.Run, orders broker.OrderService) []models.OrderRecord {
	if app.Store != nil {
		records, err := app.Store.GetOrders(cmd.Context(), store.OrderFilter{RunID: run.ID})
		if err != nil {
			app.Logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to read journaled orders")
			return nil
		}
		return records
	}

	paper, ok := orders.(*broker.PaperOrderClient)
	if !ok {
		return nil
	}
	placed := paper.Orders()
	records := make([]models.OrderRecord, len(placed))
	for i, o := range placed {
		records[i] = models.OrderRecord{
			RunID:       run.ID,
			OrderNumber: o.ID,
			Strategy:    o.Strategy,
			StockCode:   o.StockCode,
			Exchange:    o.Exchange,
			Side:        o.Side,
			Type:        o.Type,
			Quantity:    o.Quantity,
			Price:       o.Price,
			DryRun:      true,
			Status:      models.OrderAccepted,
			PlacedAt:    o.PlacedAt,
		}
	}
	return records
}

func renderRun(output *Output, run *models.Run, records []models.OrderRecord) {
	output.Println()
	output.Bold("Run %s", run.ID)
	output.Printf("  Strategy:  %s\n", run.Strategy)
	output.Printf("  Mode:      %s\n", ModeLabel(run.DryRun))
	output.Printf("  Duration:  %s\n", FormatDuration(run.Duration()))
	switch run.Status {
	case models.RunSucceeded:
		output.Printf("  Status:    %s\n", output.Green(string(run.Status)))
	default:
		output.Printf("  Status:    %s\n", output.Red(string(run.Status)))
		output.Printf("  Error:     %s\n", run.Error)
	}
	output.Println()

	if len(records) == 0 {
		output.Dim("No orders placed")
		return
	}

	renderOrders(output, records)
}

func renderOrders(output *Output, records []models.OrderRecord) {
	table := NewTable(output, "TIME", "ORDER NO", "CODE", "SIDE", "TYPE", "QTY", "PRICE", "MODE", "STATUS")
	for _, r := range records {
		side := output.Green(string(r.Side))
		if r.Side == models.OrderSideSell {
			side = output.Red(string(r.Side))
		}
		status := string(r.Status)
		if r.Status == models.OrderRejected {
			status = output.Red(status)
		}
		price := "-"
		if r.Type == models.OrderTypeLimit {
			price = FormatPrice(r.Price)
		}
		orderNo := r.OrderNumber
		if orderNo == "" {
			orderNo = "-"
		}
		table.AddRow(
			FormatDateTime(r.PlacedAt),
			orderNo,
			r.StockCode,
			side,
			string(r.Type),
			fmt.Sprintf("%d", r.Quantity),
			price,
			ModeLabel(r.DryRun),
			status,
		)
	}
	table.Render()
}

func newStrategiesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "strategies",
		Aliases: []string{"list"},
		Short:   "List the available strategies",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			loaded := app.Registry.Loaded(app.Logger)

			if output.IsJSON() {
				type entry struct {
					Name        string `json:"name"`
					Source      string `json:"source"`
					Description string `json:"description"`
				}
				entries := make([]entry, len(loaded))
				for i, d := range loaded {
					entries[i] = entry{Name: d.Name, Source: d.Source, Description: d.Description}
				}
				return output.JSON(entries)
			}

			if len(loaded) == 0 {
				output.Warning("No strategies available")
				return nil
			}

			table := NewTable(output, "NAME", "SOURCE", "DESCRIPTION")
			for _, d := range loaded {
				table.AddRow(d.Name, d.Source, TruncateString(d.Description, 60))
			}
			table.Render()
			return nil
		},
	}
}

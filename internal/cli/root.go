// Package cli provides the command-line interface for the trading application.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kiwoom-trader/internal/broker"
	"kiwoom-trader/internal/config"
	apperrors "kiwoom-trader/internal/errors"
	"kiwoom-trader/internal/logging"
	"kiwoom-trader/internal/models"
	"kiwoom-trader/internal/store"
	"kiwoom-trader/internal/strategy"
	"kiwoom-trader/internal/trading"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// annotation that lets a command run without loading configuration.
const skipConfigAnnotation = "skip_config"

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// App holds the application dependencies. Broker clients and the journal
// are created on first use so commands that do not need them never require
// credentials.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Registry *strategy.Registry

	Tokens *broker.TokenGuard
	Quotes broker.QuoteService
	Orders broker.OrderService
	Store  store.DataStore

	client *broker.Client
}

// NewApp creates an application bound to registry. A nil registry means
// strategy.Default.
func NewApp(registry *strategy.Registry) *App {
	if registry == nil {
		registry = strategy.Default
	}
	return &App{
		Logger:   zerolog.Nop(),
		Registry: registry,
	}
}

// Close releases the journal database if it was opened.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

// setup loads configuration and builds the logger.
func (a *App) setup(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configDir)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	if cmd.Flags().Changed("dry-run") {
		cfg.Trading.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}

	logCfg := logging.DefaultLogConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Out = cmd.ErrOrStderr()
	logCfg.File = cfg.Log.File
	logCfg.FilePath = cfg.Log.Path

	a.Config = cfg
	a.Logger = logging.NewLoggerWithConfig(logCfg)
	a.Logger.Debug().
		Str("config_dir", cfg.Dir).
		Bool("dry_run", cfg.Trading.DryRun).
		Str("exchange", cfg.Trading.Exchange).
		Msg("Configuration loaded")
	return nil
}

// brokerClient validates credentials and builds the shared API client.
func (a *App) brokerClient() (*broker.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if err := a.Config.ValidateCredentials(); err != nil {
		return nil, err
	}

	creds := a.Config.Credentials
	httpClient := &http.Client{Timeout: a.Config.HTTP.Timeout}
	a.Tokens = broker.NewTokenGuard(broker.AuthConfig{
		BaseURL:    creds.BaseURL,
		AppKey:     creds.AppKey,
		AppSecret:  creds.AppSecret,
		HTTPClient: httpClient,
		Location:   a.Config.Location(),
		Logger:     a.Logger,
	})
	a.client = broker.NewClient(broker.ClientConfig{
		BaseURL:    creds.BaseURL,
		AppKey:     creds.AppKey,
		AppSecret:  creds.AppSecret,
		HTTPClient: httpClient,
		Logger:     a.Logger,
	}, a.Tokens)
	a.Logger.Debug().Str("base_url", creds.BaseURL).Msg("Kiwoom client initialized")
	return a.client, nil
}

func (a *App) quoteService() (broker.QuoteService, error) {
	if a.Quotes != nil {
		return a.Quotes, nil
	}
	client, err := a.brokerClient()
	if err != nil {
		return nil, err
	}
	a.Quotes = broker.NewQuoteClient(client, a.Logger)
	return a.Quotes, nil
}

// orderService returns the paper client in dry-run mode and the live
// order client otherwise.
func (a *App) orderService(dryRun bool) (broker.OrderService, error) {
	exchange := models.Exchange(a.Config.Trading.Exchange)
	if dryRun {
		return broker.NewPaperOrderClient(exchange, a.Logger), nil
	}
	if a.Orders != nil {
		return a.Orders, nil
	}
	client, err := a.brokerClient()
	if err != nil {
		return nil, err
	}
	a.Orders = broker.NewOrderClient(client, broker.OrderConfig{
		AccountNumber: a.Config.Credentials.AccountNumber,
		Exchange:      exchange,
		Logger:        a.Logger,
	})
	return a.Orders, nil
}

// journal opens the SQLite journal when enabled. Failing to open it only
// disables journaling.
func (a *App) journal() store.DataStore {
	if a.Store != nil || !a.Config.Store.Enabled {
		return a.Store
	}
	s, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		a.Logger.Warn().Err(err).Str("path", a.Config.Store.Path).Msg("Failed to open journal, continuing without it")
		return nil
	}
	a.Store = s
	a.Logger.Debug().Str("path", a.Config.Store.Path).Msg("SQLite journal opened")
	return a.Store
}

// tradingJournal avoids handing a typed nil to the trading layer.
func (a *App) tradingJournal() trading.Journal {
	if s := a.journal(); s != nil {
		return s
	}
	return nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trader [strategy]",
		Short: "Kiwoom Trader - strategy runner for the Kiwoom REST API",
		Long: `Kiwoom Trader runs one registered strategy against the Kiwoom Securities REST API.

Pass a strategy name to run it once. Orders are paper-traded unless
trading.dry_run is false or --dry-run=false is given.

Use 'trader strategies' to list the available strategies.
Use 'trader init' to create configuration templates.`,
		Example: `  trader AfterHoursStrategy
  trader quote afterhours --rate 15
  trader order buy 005930 1 --price 70000`,
		Args:          strategyArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" || cmd.Name() == "help" {
				return nil
			}
			if cmd == cmd.Root() && len(args) == 0 {
				return nil
			}
			return app.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return missingStrategy(cmd, app)
			}
			return runStrategy(cmd, app, args[0])
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/kiwoom-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("dry-run", true, "paper-trade orders instead of sending them")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newStrategiesCmd(app))
	rootCmd.AddCommand(newTokenCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newOrderCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newMarketCmd())

	return rootCmd
}

func strategyArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return &ExitError{
			Code: ExitUsage,
			Err:  fmt.Errorf("accepts at most one strategy name, received %d arguments", len(args)),
		}
	}
	return nil
}

// usageArgs maps an argument validation failure to the usage exit code.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &ExitError{Code: ExitUsage, Err: err}
		}
		return nil
	}
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(nil)
	defer app.Close()

	if args == nil {
		args = []string{}
	}
	rootCmd := NewRootCmd(app)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	return exitCode(err, stderr)
}

// exitCode reports err on w and maps it to an exit code.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil && !errors.Is(exitErr.Err, errReported) {
			fmt.Fprintf(w, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}

	if errors.Is(err, errReported) {
		return ExitFailure
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return ExitFailure
}

// errReported marks an error whose message was already shown to the user.
var errReported = errors.New("reported")

// reported wraps err so exitCode does not print it a second time.
func reported(code int, err error) error {
	return &ExitError{Code: code, Err: fmt.Errorf("%w: %w", errReported, err)}
}

// failure wraps err with the generic failure code.
func failure(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: ExitFailure, Err: err}
}

func isUnknownStrategy(err error) bool {
	return apperrors.Is(err, apperrors.ErrUnknownStrategy)
}

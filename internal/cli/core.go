package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"kiwoom-trader/internal/config"
	"kiwoom-trader/pkg/utils"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Kiwoom Trader v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create configuration templates",
		Long:        "Write config.yaml, strategy_config.yaml and .env templates to the config directory.",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			force, _ := cmd.Flags().GetBool("force")

			written, err := config.WriteTemplates(dir, force)
			if err != nil {
				return failure(err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"dir": dir, "written": written})
			}
			if len(written) == 0 {
				output.Info("Configuration already present in %s (use --force to overwrite)", dir)
				return nil
			}
			for _, path := range written {
				output.Success("✓ Wrote %s", path)
			}
			output.Println()
			output.Println("Fill in the credentials in .env before running a strategy.")
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "overwrite existing files")
	return cmd
}

// configView is the displayable configuration with secrets masked.
type configView struct {
	Dir        string                  `json:"dir"`
	DryRun     bool                    `json:"dry_run"`
	Exchange   string                  `json:"exchange"`
	Timeout    string                  `json:"http_timeout"`
	LogLevel   string                  `json:"log_level"`
	LogFile    string                  `json:"log_file,omitempty"`
	Journal    string                  `json:"journal,omitempty"`
	Timezone   string                  `json:"timezone"`
	BaseURL    string                  `json:"base_url"`
	AppKey     string                  `json:"app_key"`
	Account    string                  `json:"account"`
	Strategies config.StrategySettings `json:"strategies"`
}

func newConfigView(cfg *config.Config) configView {
	view := configView{
		Dir:        cfg.Dir,
		DryRun:     cfg.Trading.DryRun,
		Exchange:   cfg.Trading.Exchange,
		Timeout:    cfg.HTTP.Timeout.String(),
		LogLevel:   cfg.Log.Level,
		Timezone:   cfg.Location().String(),
		BaseURL:    cfg.Credentials.BaseURL,
		AppKey:     maskSecret(cfg.Credentials.AppKey),
		Account:    utils.MaskAccount(cfg.Credentials.AccountNumber),
		Strategies: cfg.Strategies,
	}
	if cfg.Log.File {
		view.LogFile = cfg.Log.Path
	}
	if cfg.Store.Enabled {
		view.Journal = cfg.Store.Path
	}
	return view
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return utils.MaskAccount(s)
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			view := newConfigView(app.Config)
			if output.IsJSON() {
				return output.JSON(view)
			}
			showConfig(output, view)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Args:        usageArgs(cobra.NoArgs),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": dir})
			}
			output.Println(dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.ValidateCredentials(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return reported(ExitFailure, err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			if err := app.Config.ValidateAccount(); err != nil {
				output.Warning("%v, order placement is unavailable", err)
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, view configView) {
	output.Bold("Trading")
	output.Printf("  Dry run:   %v\n", view.DryRun)
	output.Printf("  Exchange:  %s\n", view.Exchange)
	output.Println()

	output.Bold("Kiwoom")
	output.Printf("  Base URL:  %s\n", orDash(view.BaseURL))
	output.Printf("  App key:   %s\n", orDash(view.AppKey))
	output.Printf("  Account:   %s\n", orDash(view.Account))
	output.Printf("  Timezone:  %s\n", view.Timezone)
	output.Printf("  Timeout:   %s\n", view.Timeout)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Config:    %s\n", view.Dir)
	output.Printf("  Journal:   %s\n", orDash(view.Journal))
	output.Printf("  Log file:  %s\n", orDash(view.LogFile))
	output.Printf("  Log level: %s\n", view.LogLevel)
	output.Println()

	output.Bold("Strategy settings")
	if len(view.Strategies) == 0 {
		output.Dim("  (none)")
		return
	}
	for _, name := range sortedKeys(view.Strategies) {
		output.Printf("  %s\n", name)
		settings := view.Strategies[name]
		for _, key := range sortedKeys(settings) {
			output.Printf("    %s: %v\n", key, settings[key])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

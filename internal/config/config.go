// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apperrors "kiwoom-trader/internal/errors"
)

const (
	configFileName   = "config"
	strategyFileName = "strategy_config.yaml"
	envFileName      = ".env"
)

// Config holds all application configuration.
type Config struct {
	Trading     TradingConfig    `mapstructure:"trading"`
	HTTP        HTTPConfig       `mapstructure:"http"`
	Log         LogConfig        `mapstructure:"log"`
	Store       StoreConfig      `mapstructure:"store"`
	Kiwoom      KiwoomConfig     `mapstructure:"kiwoom"`
	Credentials Credentials      `mapstructure:"-" validate:"-"` // Loaded separately
	Strategies  StrategySettings `mapstructure:"-" validate:"-"` // Loaded separately
	Dir         string           `mapstructure:"-"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	DryRun   bool   `mapstructure:"dry_run"`
	Exchange string `mapstructure:"exchange" validate:"oneof=KRX NXT SOR"`
}

// HTTPConfig holds outbound HTTP configuration.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File  bool   `mapstructure:"file"`
	Path  string `mapstructure:"path"`
}

// StoreConfig holds journal database configuration.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// KiwoomConfig holds broker specific options.
type KiwoomConfig struct {
	// Timezone used to interpret token expiry timestamps. Empty means local time.
	Timezone string `mapstructure:"timezone"`
}

// Credentials holds API credentials.
type Credentials struct {
	AppKey        string `mapstructure:"KIWOOM_APP_KEY" validate:"required"`
	AppSecret     string `mapstructure:"KIWOOM_SECRET_KEY" validate:"required"`
	BaseURL       string `mapstructure:"KIWOOM_BASE_URL" validate:"required,url"`
	AccountNumber string `mapstructure:"KIWOOM_ACCOUNT_NUMBER"`
}

// StrategySettings maps a strategy name to its option mapping.
type StrategySettings map[string]map[string]any

// For returns the settings for name, or an empty mapping.
func (s StrategySettings) For(name string) map[string]any {
	if settings, ok := s[name]; ok && settings != nil {
		return settings
	}
	return map[string]any{}
}

var validate = validator.New()

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/kiwoom-trader"
	}
	return filepath.Join(home, ".config", "kiwoom-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
// Credentials are loaded but not validated; see ValidateCredentials.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{Dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.yaml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	settings, err := loadStrategySettings(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", strategyFileName, err)
	}
	cfg.Strategies = settings

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("trading.dry_run", true)
	v.SetDefault("trading.exchange", "KRX")
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", true)
	v.SetDefault("log.path", filepath.Join(configDir, "logs", "trader.log"))
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", filepath.Join(configDir, "trader.db"))
	v.SetDefault("kiwoom.timezone", "")
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, defaults apply
	}

	return v.Unmarshal(cfg)
}

// loadCredentials reads an optional dotenv file, the process environment wins.
func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigType("env")
	for _, key := range credentialKeys() {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	path := findEnvFile(configDir)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	creds.AppKey = strings.TrimSpace(v.GetString("KIWOOM_APP_KEY"))
	creds.AppSecret = strings.TrimSpace(v.GetString("KIWOOM_SECRET_KEY"))
	creds.BaseURL = strings.TrimRight(strings.TrimSpace(v.GetString("KIWOOM_BASE_URL")), "/")
	creds.AccountNumber = strings.TrimSpace(v.GetString("KIWOOM_ACCOUNT_NUMBER"))
	return nil
}

func credentialKeys() []string {
	return []string{"KIWOOM_APP_KEY", "KIWOOM_SECRET_KEY", "KIWOOM_BASE_URL", "KIWOOM_ACCOUNT_NUMBER"}
}

// findEnvFile prefers the config directory over the working directory.
func findEnvFile(configDir string) string {
	candidates := []string{filepath.Join(configDir, envFileName), envFileName}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadStrategySettings parses the settings document with yaml directly, viper
// would lowercase the strategy names used as keys.
func loadStrategySettings(configDir string) (StrategySettings, error) {
	data, err := os.ReadFile(filepath.Join(configDir, strategyFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return StrategySettings{}, nil
		}
		return nil, err
	}
	return ParseStrategySettings(data)
}

// ParseStrategySettings decodes a YAML document keyed by strategy name.
func ParseStrategySettings(data []byte) (StrategySettings, error) {
	settings := StrategySettings{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADER_DRY_RUN"); v != "" {
		cfg.Trading.DryRun = v != "false" && v != "0"
	}
	if v := os.Getenv("TRADER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrConfigInvalid, err)
	}
	if c.Kiwoom.Timezone != "" {
		if _, err := time.LoadLocation(c.Kiwoom.Timezone); err != nil {
			return fmt.Errorf("%w: kiwoom.timezone: %v", apperrors.ErrConfigInvalid, err)
		}
	}
	return nil
}

// ValidateCredentials reports missing or malformed API credentials.
func (c *Config) ValidateCredentials() error {
	if err := validate.Struct(c.Credentials); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, describeCredentialErrors(err))
	}
	return nil
}

// ValidateAccount reports a missing account number, required for orders.
func (c *Config) ValidateAccount() error {
	if c.Credentials.AccountNumber == "" {
		return fmt.Errorf("%w: KIWOOM_ACCOUNT_NUMBER is not set", apperrors.ErrConfigInvalid)
	}
	return nil
}

// Location returns the timezone used for broker timestamps.
func (c *Config) Location() *time.Location {
	if c.Kiwoom.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Kiwoom.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func describeCredentialErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	envNames := map[string]string{
		"AppKey":    "KIWOOM_APP_KEY",
		"AppSecret": "KIWOOM_SECRET_KEY",
		"BaseURL":   "KIWOOM_BASE_URL",
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		if fe.Tag() == "required" {
			parts = append(parts, name+" is not set")
		} else {
			parts = append(parts, fmt.Sprintf("%s is not a valid %s", name, fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}

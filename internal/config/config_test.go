package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kiwoom-trader/internal/errors"
)

func clearKiwoomEnv(t *testing.T) {
	t.Helper()
	for _, key := range append(credentialKeys(), "TRADER_DRY_RUN", "TRADER_LOG_LEVEL") {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	clearKiwoomEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.True(t, cfg.Trading.DryRun)
	assert.Equal(t, "KRX", cfg.Trading.Exchange)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "trader.db"), cfg.Store.Path)
	assert.Empty(t, cfg.Strategies)
	assert.Equal(t, time.Local, cfg.Location())

	err = cfg.ValidateCredentials()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "KIWOOM_APP_KEY is not set")
}

func TestLoadReadsFilesAndEnvOverrides(t *testing.T) {
	clearKiwoomEnv(t)
	dir := t.TempDir()

	writeFile(t, dir, "config.yaml", "trading:\n  dry_run: false\nhttp:\n  timeout: 3s\nkiwoom:\n  timezone: Asia/Seoul\n")
	writeFile(t, dir, ".env", "KIWOOM_APP_KEY=file-key\nKIWOOM_SECRET_KEY=file-secret\nKIWOOM_BASE_URL=https://mockapi.kiwoom.com/\n")
	writeFile(t, dir, "strategy_config.yaml", "AfterHoursStrategy:\n  target_rate: 12.5\n  investment_amount: 500000\n")

	t.Setenv("KIWOOM_SECRET_KEY", "env-secret")
	t.Setenv("TRADER_LOG_LEVEL", "DEBUG")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.False(t, cfg.Trading.DryRun)
	assert.Equal(t, 3*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "file-key", cfg.Credentials.AppKey)
	assert.Equal(t, "env-secret", cfg.Credentials.AppSecret)
	assert.Equal(t, "https://mockapi.kiwoom.com", cfg.Credentials.BaseURL)
	assert.NoError(t, cfg.ValidateCredentials())
	assert.ErrorIs(t, cfg.ValidateAccount(), apperrors.ErrConfigInvalid)
	assert.Equal(t, "Asia/Seoul", cfg.Location().String())

	settings := cfg.Strategies.For("AfterHoursStrategy")
	assert.Equal(t, 12.5, settings["target_rate"])
	assert.Equal(t, 500000, settings["investment_amount"])
	assert.Empty(t, cfg.Strategies.For("Unknown"))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearKiwoomEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "log:\n  level: verbose\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestValidateCredentialsRejectsBadURL(t *testing.T) {
	cfg := &Config{Credentials: Credentials{AppKey: "k", AppSecret: "s", BaseURL: "not a url"}}
	err := cfg.ValidateCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KIWOOM_BASE_URL is not a valid url")
}

func TestParseStrategySettingsKeepsNameCase(t *testing.T) {
	settings, err := ParseStrategySettings([]byte("AfterHoursStrategy:\n  target_rate: 10\nGapStrategy: {}\n"))
	require.NoError(t, err)
	assert.Contains(t, settings, "AfterHoursStrategy")
	assert.Contains(t, settings, "GapStrategy")
}

func TestWriteTemplates(t *testing.T) {
	dir := t.TempDir()

	written, err := WriteTemplates(dir, false)
	require.NoError(t, err)
	assert.Len(t, written, 3)

	info, err := os.Stat(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	written, err = WriteTemplates(dir, false)
	require.NoError(t, err)
	assert.Empty(t, written)

	// The generated files load cleanly.
	clearKiwoomEnv(t)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.Strategies.For("AfterHoursStrategy")["target_rate"])
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

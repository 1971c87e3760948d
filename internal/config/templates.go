package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Kiwoom Trader Configuration

trading:
  # Block order placement and journal the intent instead
  dry_run: true
  # Domestic exchange routing: KRX, NXT, SOR
  exchange: KRX

http:
  # Timeout applied to every outbound API call
  timeout: 10s

log:
  # debug, info, warn, error
  level: info
  # Also write a rotating log file under the config directory
  file: true

store:
  # Keep a SQLite journal of runs, scans and orders
  enabled: true

kiwoom:
  # Timezone of token expiry timestamps, empty for local time
  timezone: Asia/Seoul
`

const strategyTemplate = `# Strategy settings, keyed by strategy name

AfterHoursStrategy:
  # Minimum after-hours single-price change rate, percent
  target_rate: 10.0
  # Amount invested per candidate, KRW
  investment_amount: 100000
  # Send market orders; leave false to only log the intent
  execute_orders: false
`

const envTemplate = `# Kiwoom REST API credentials
KIWOOM_APP_KEY=
KIWOOM_SECRET_KEY=
KIWOOM_BASE_URL=https://api.kiwoom.com
KIWOOM_ACCOUNT_NUMBER=
`

type template struct {
	name string
	body string
	perm os.FileMode
}

func templates() []template {
	return []template{
		{name: configFileName + ".yaml", body: configTemplate, perm: 0644},
		{name: strategyFileName, body: strategyTemplate, perm: 0644},
		// Use restricted permissions for the credentials file
		{name: envFileName, body: envTemplate, perm: 0600},
	}
}

// WriteTemplates creates template configuration files in configDir.
// Existing files are left untouched unless overwrite is set.
// It returns the paths that were written.
func WriteTemplates(configDir string, overwrite bool) ([]string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	var written []string
	for _, tmpl := range templates() {
		path := filepath.Join(configDir, tmpl.name)
		if _, err := os.Stat(path); err == nil && !overwrite {
			continue
		}
		if err := os.WriteFile(path, []byte(tmpl.body), tmpl.perm); err != nil {
			return written, fmt.Errorf("writing %s template: %w", tmpl.name, err)
		}
		written = append(written, path)
	}

	return written, nil
}

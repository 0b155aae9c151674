package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
environment: test
cookie:
  api_key: cookie-key
llm:
  api_key: llm-key
wallet:
  base_url: http://wallet.local
analyst:
  contracts:
    - "0xabc"
    - "0xdef"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "https://api.cookie.fun", cfg.Cookie.BaseURL)
	assert.Equal(t, 48*time.Hour, cfg.Cookie.PostsWindow)
	assert.Equal(t, 5, cfg.Trader.AgentLimit)
	assert.Equal(t, "balance_fraction", cfg.Trader.Sizing)
	assert.Equal(t, "0.1", cfg.Trader.MaxFraction)
	assert.Equal(t, 15*time.Minute, cfg.Sweep.PendingTimeout)
	assert.Equal(t, cfg.Trader.CycleTimeout, cfg.Trader.LockTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ANALYST_CONTRACTS", "0x1,0x2,0x3")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Cron.Secret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Len(t, cfg.Analyst.Contracts, 3)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.Storage.Driver = "postgres" },
			wantErr: "storage.driver",
		},
		{
			name:    "clickhouse without host",
			mutate:  func(c *Config) { c.Storage.Driver = "clickhouse" },
			wantErr: "clickhouse.host",
		},
		{
			name:    "normalize sizing without budget",
			mutate:  func(c *Config) { c.Trader.Sizing = "normalize" },
			wantErr: "trader.cycle_budget",
		},
		{
			name:    "fraction above one",
			mutate:  func(c *Config) { c.Trader.MaxFraction = "1.5" },
			wantErr: "trader.max_fraction",
		},
		{
			name:    "fraction not a number",
			mutate:  func(c *Config) { c.Trader.MaxFraction = "ten percent" },
			wantErr: "trader.max_fraction",
		},
		{
			name:    "kafka enabled without brokers",
			mutate:  func(c *Config) { c.Kafka.Enabled = true },
			wantErr: "kafka.brokers",
		},
		{
			name:    "no contracts",
			mutate:  func(c *Config) { c.Analyst.Contracts = nil },
			wantErr: "analyst.contracts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalYAML))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

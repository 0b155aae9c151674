package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
		Output  string `yaml:"output"`
		Collect struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval"`
			Threshold int           `yaml:"threshold"`
		} `yaml:"collect"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RateLimit       struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Storage struct {
		Driver     string `yaml:"driver"` // clickhouse or sqlite
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Topics       struct {
			TradeEvents string `yaml:"trade_events"`
			Logs        string `yaml:"logs"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			RelayBuffer  int           `yaml:"relay_buffer"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Cookie struct {
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		Timeout     time.Duration `yaml:"timeout"`
		RPS         float64       `yaml:"rps"`
		PostsWindow time.Duration `yaml:"posts_window"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
	} `yaml:"cookie"`
	Zapper struct {
		URL           string        `yaml:"url"`
		APIKey        string        `yaml:"api_key"`
		WalletAddress string        `yaml:"wallet_address"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"zapper"`
	LLM struct {
		BaseURL   string        `yaml:"base_url"`
		APIKey    string        `yaml:"api_key"`
		Model     string        `yaml:"model"`
		MaxTokens int           `yaml:"max_tokens"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Wallet struct {
		BaseURL          string        `yaml:"base_url"`
		APIKey           string        `yaml:"api_key"`
		NetworkID        string        `yaml:"network_id"`
		Timeout          time.Duration `yaml:"timeout"`
		MaxSteps         int           `yaml:"max_steps"`
		ExecutionTimeout time.Duration `yaml:"execution_timeout"`
	} `yaml:"wallet"`
	Trader struct {
		AgentLimit   int           `yaml:"agent_limit"`
		Sizing       string        `yaml:"sizing"` // normalize or balance_fraction
		CycleBudget  string        `yaml:"cycle_budget"`
		MaxFraction  string        `yaml:"max_fraction"`
		CycleTimeout time.Duration `yaml:"cycle_timeout"`
		LockTTL      time.Duration `yaml:"lock_ttl"`
	} `yaml:"trader"`
	Analyst struct {
		Contracts []string `yaml:"contracts"`
	} `yaml:"analyst"`
	Sweep struct {
		PendingTimeout time.Duration `yaml:"pending_timeout"`
		Interval       time.Duration `yaml:"interval"`
	} `yaml:"sweep"`
	Cron struct {
		Secret string `yaml:"secret"`
	} `yaml:"cron"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	return &c, nil
}

// LoadWithEnv loads config from YAML, then a .env file if present, then overrides
// from the process environment, and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("ENVIRONMENT", &c.Environment)
	str("LOG_LEVEL", &c.Log.Level)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("COOKIE_API_KEY", &c.Cookie.APIKey)
	str("ZAPPER_API_KEY", &c.Zapper.APIKey)
	str("WALLET_ADDRESS", &c.Zapper.WalletAddress)
	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("OPENAI_BASE_URL", &c.LLM.BaseURL)
	str("WALLET_API_KEY", &c.Wallet.APIKey)
	str("NETWORK_ID", &c.Wallet.NetworkID)
	str("CRON_SECRET", &c.Cron.Secret)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ANALYST_CONTRACTS"); v != "" {
		c.Analyst.Contracts = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/tradepilot.db"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "tradepilot"
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = 4
	}
	if c.Kafka.Topics.TradeEvents == "" {
		c.Kafka.Topics.TradeEvents = "tradepilot.trade-events"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "tradepilot-feed"
	}
	if c.Cookie.BaseURL == "" {
		c.Cookie.BaseURL = "https://api.cookie.fun"
	}
	if c.Cookie.PostsWindow == 0 {
		c.Cookie.PostsWindow = 48 * time.Hour
	}
	if c.Cookie.RPS == 0 {
		c.Cookie.RPS = 5
	}
	if c.Zapper.URL == "" {
		c.Zapper.URL = "https://public.zapper.xyz/graphql"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.Wallet.MaxSteps == 0 {
		c.Wallet.MaxSteps = 12
	}
	if c.Wallet.ExecutionTimeout == 0 {
		c.Wallet.ExecutionTimeout = 10 * time.Minute
	}
	if c.Trader.AgentLimit == 0 {
		c.Trader.AgentLimit = 5
	}
	if c.Trader.Sizing == "" {
		c.Trader.Sizing = "balance_fraction"
	}
	if c.Trader.MaxFraction == "" {
		c.Trader.MaxFraction = "0.1"
	}
	if c.Trader.CycleTimeout == 0 {
		c.Trader.CycleTimeout = 5 * time.Minute
	}
	if c.Trader.LockTTL == 0 {
		c.Trader.LockTTL = c.Trader.CycleTimeout
	}
	if c.Sweep.PendingTimeout == 0 {
		c.Sweep.PendingTimeout = 15 * time.Minute
	}
	if c.Sweep.Interval == 0 {
		c.Sweep.Interval = 5 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Storage.Driver != "clickhouse" && c.Storage.Driver != "sqlite" {
		return fmt.Errorf("storage.driver must be 'clickhouse' or 'sqlite', got '%s'", c.Storage.Driver)
	}
	if c.Storage.Driver == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for the clickhouse driver")
	}
	if c.Trader.Sizing != "normalize" && c.Trader.Sizing != "balance_fraction" {
		return fmt.Errorf("trader.sizing must be 'normalize' or 'balance_fraction', got '%s'", c.Trader.Sizing)
	}
	if c.Trader.Sizing == "normalize" && c.Trader.CycleBudget == "" {
		return fmt.Errorf("trader.cycle_budget is required when trader.sizing is 'normalize'")
	}
	if f, err := decimal.NewFromString(c.Trader.MaxFraction); err != nil || !f.IsPositive() || f.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("trader.max_fraction must be a decimal in (0,1], got '%s'", c.Trader.MaxFraction)
	}
	if c.Trader.CycleBudget != "" {
		if b, err := decimal.NewFromString(c.Trader.CycleBudget); err != nil || !b.IsPositive() {
			return fmt.Errorf("trader.cycle_budget must be a positive decimal, got '%s'", c.Trader.CycleBudget)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Cookie.APIKey == "" {
		return fmt.Errorf("cookie.api_key is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.Wallet.BaseURL == "" {
		return fmt.Errorf("wallet.base_url is required")
	}
	if len(c.Analyst.Contracts) == 0 {
		return fmt.Errorf("analyst.contracts cannot be empty")
	}
	return nil
}

// MaxFractionDecimal returns trader.max_fraction parsed. Validate guarantees it parses.
func (c *Config) MaxFractionDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Trader.MaxFraction)
	return d
}

// CycleBudgetDecimal returns trader.cycle_budget parsed, zero when unset.
func (c *Config) CycleBudgetDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.Trader.CycleBudget)
	if err != nil {
		return decimal.Zero
	}
	return d
}

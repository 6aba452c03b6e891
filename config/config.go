package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	BinanceConfig      BinanceConfig      `json:"binance"`
	TradingConfig      TradingConfig      `json:"trading"`
	RiskConfig         RiskConfig         `json:"risk"`
	AIConfig           AIConfig           `json:"ai"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	ServerConfig       ServerConfig       `json:"server"`
	NotificationConfig NotificationConfig `json:"notification"`
	SchedulerConfig    SchedulerConfig    `json:"scheduler"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// BinanceConfig holds exchange connectivity and execution mode settings.
type BinanceConfig struct {
	APIKey         string `json:"api_key"`
	SecretKey      string `json:"secret_key"`
	BaseURL        string `json:"base_url"`
	TestNet        bool   `json:"testnet"`
	ExecuteOrders  bool   `json:"execute_orders"`  // false = simulated fills, no real orders
	RequireTestNet bool   `json:"require_testnet"` // refuse to start live execution off testnet
}

type TradingConfig struct {
	Symbol           string  `json:"symbol"`
	Timeframe        string  `json:"timeframe"`
	MaxCandles       int     `json:"max_candles"`
	PollIntervalSecs int     `json:"poll_interval_secs"`
	RetryBackoffSecs int     `json:"retry_backoff_secs"`
	AccountBalance   float64 `json:"account_balance"`
	KillzoneOnly     bool    `json:"killzone_only"` // only evaluate candles inside session overlaps
}

type RiskConfig struct {
	MaxDailyDrawdownR      float64 `json:"max_daily_drawdown_r"` // in risk multiples
	RiskPerTradePercent    float64 `json:"risk_per_trade_percent"`
	MinRRRatio             float64 `json:"min_rr_ratio"`
	MaxTradeDurationMins   int     `json:"max_trade_duration_mins"`
	AllowKillswitchRecover bool    `json:"allow_killswitch_recover"` // un-trip within the day if PnL recovers
}

// AIConfig holds decision-authority connectivity.
type AIConfig struct {
	Provider    string `json:"provider"` // "ollama" or "openai"
	BaseURL     string `json:"base_url"`
	APIKey      string `json:"api_key"`
	Model       string `json:"model"`
	TimeoutSecs int    `json:"timeout_secs"`
	GuidePath   string `json:"guide_path"` // execution guide used as the system prompt
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ServerConfig struct {
	Port          int      `json:"port"`
	InternalToken string   `json:"internal_token"`
	AllowOrigins  []string `json:"allow_origins"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled     bool   `json:"enabled"`
	BotToken    string `json:"bot_token"`
	ChatID      string `json:"chat_id"`
	IncludeWait bool   `json:"include_wait"`
}

type SchedulerConfig struct {
	DailyBriefingCron string `json:"daily_briefing_cron"` // cron spec with seconds field
	TimeStopCron      string `json:"time_stop_cron"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json or console
	Output string `json:"output"` // stdout, stderr, or file path
}

// Load reads config.json if present and applies environment overrides on top.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the fatal-at-startup invariants: execution is never
// allowed off testnet while testnet is required, and the sizing parameters
// must be positive before any component is constructed.
func (c *Config) Validate() error {
	if c.BinanceConfig.ExecuteOrders && c.BinanceConfig.RequireTestNet && !c.BinanceConfig.TestNet {
		return fmt.Errorf("execute_orders enabled against a non-testnet endpoint while require_testnet is set")
	}
	if c.RiskConfig.RiskPerTradePercent <= 0 {
		return fmt.Errorf("risk_per_trade_percent must be positive, got %v", c.RiskConfig.RiskPerTradePercent)
	}
	if c.RiskConfig.MinRRRatio <= 0 {
		return fmt.Errorf("min_rr_ratio must be positive, got %v", c.RiskConfig.MinRRRatio)
	}
	if c.TradingConfig.AccountBalance <= 0 {
		return fmt.Errorf("account_balance must be positive, got %v", c.TradingConfig.AccountBalance)
	}
	if c.RiskConfig.MaxDailyDrawdownR <= 0 {
		return fmt.Errorf("max_daily_drawdown_r must be positive, got %v", c.RiskConfig.MaxDailyDrawdownR)
	}
	if c.TradingConfig.MaxCandles < 5 {
		return fmt.Errorf("max_candles must be at least 5, got %d", c.TradingConfig.MaxCandles)
	}
	return nil
}

// AITimeout returns the decision-authority timeout as a duration.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AIConfig.TimeoutSecs) * time.Second
}

func applyDefaults(cfg *Config) {
	if cfg.BinanceConfig.BaseURL == "" {
		cfg.BinanceConfig.BaseURL = "https://testnet.binancefuture.com"
		cfg.BinanceConfig.TestNet = true
	}
	if cfg.TradingConfig.Symbol == "" {
		cfg.TradingConfig.Symbol = "BTCUSDT"
	}
	if cfg.TradingConfig.Timeframe == "" {
		cfg.TradingConfig.Timeframe = "5m"
	}
	if cfg.TradingConfig.MaxCandles == 0 {
		cfg.TradingConfig.MaxCandles = 100
	}
	if cfg.TradingConfig.PollIntervalSecs == 0 {
		cfg.TradingConfig.PollIntervalSecs = 10
	}
	if cfg.TradingConfig.RetryBackoffSecs == 0 {
		cfg.TradingConfig.RetryBackoffSecs = 5
	}
	if cfg.TradingConfig.AccountBalance == 0 {
		cfg.TradingConfig.AccountBalance = 10000
	}
	if cfg.RiskConfig.MaxDailyDrawdownR == 0 {
		cfg.RiskConfig.MaxDailyDrawdownR = 2.0
	}
	if cfg.RiskConfig.RiskPerTradePercent == 0 {
		cfg.RiskConfig.RiskPerTradePercent = 0.01
	}
	if cfg.RiskConfig.MinRRRatio == 0 {
		cfg.RiskConfig.MinRRRatio = 3.0
	}
	if cfg.RiskConfig.MaxTradeDurationMins == 0 {
		cfg.RiskConfig.MaxTradeDurationMins = 30
	}
	if cfg.AIConfig.Provider == "" {
		cfg.AIConfig.Provider = "ollama"
	}
	if cfg.AIConfig.BaseURL == "" {
		cfg.AIConfig.BaseURL = "http://localhost:11434"
	}
	if cfg.AIConfig.Model == "" {
		cfg.AIConfig.Model = "deepseek-r1:7b"
	}
	if cfg.AIConfig.TimeoutSecs == 0 {
		cfg.AIConfig.TimeoutSecs = 30
	}
	if cfg.DatabaseConfig.Host == "" {
		cfg.DatabaseConfig.Host = "localhost"
	}
	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if len(cfg.ServerConfig.AllowOrigins) == 0 {
		cfg.ServerConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	if cfg.SchedulerConfig.DailyBriefingCron == "" {
		cfg.SchedulerConfig.DailyBriefingCron = "0 0 8 * * *"
	}
	if cfg.SchedulerConfig.TimeStopCron == "" {
		cfg.SchedulerConfig.TimeStopCron = "0 * * * * *"
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
	if cfg.LoggingConfig.Format == "" {
		cfg.LoggingConfig.Format = "json"
	}
	// Testnet sandboxing is mandatory unless explicitly opted out.
	cfg.BinanceConfig.RequireTestNet = getEnvOrDefault("REQUIRE_TESTNET", "true") == "true"
}

func applyEnvOverrides(cfg *Config) {
	cfg.BinanceConfig.APIKey = getEnvOrDefault("BINANCE_API_KEY", cfg.BinanceConfig.APIKey)
	cfg.BinanceConfig.SecretKey = getEnvOrDefault("BINANCE_SECRET_KEY", cfg.BinanceConfig.SecretKey)
	cfg.BinanceConfig.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.BinanceConfig.BaseURL)
	cfg.BinanceConfig.TestNet = getEnvBoolOrDefault("BINANCE_TESTNET", cfg.BinanceConfig.TestNet)
	cfg.BinanceConfig.ExecuteOrders = getEnvBoolOrDefault("EXECUTE_ORDERS", cfg.BinanceConfig.ExecuteOrders)

	cfg.TradingConfig.Symbol = getEnvOrDefault("TRADING_SYMBOL", cfg.TradingConfig.Symbol)
	cfg.TradingConfig.Timeframe = getEnvOrDefault("TRADING_TIMEFRAME", cfg.TradingConfig.Timeframe)
	cfg.TradingConfig.MaxCandles = getEnvIntOrDefault("MAX_CANDLES", cfg.TradingConfig.MaxCandles)
	cfg.TradingConfig.AccountBalance = getEnvFloatOrDefault("ACCOUNT_BALANCE", cfg.TradingConfig.AccountBalance)
	cfg.TradingConfig.KillzoneOnly = getEnvBoolOrDefault("KILLZONE_ONLY", cfg.TradingConfig.KillzoneOnly)

	cfg.RiskConfig.MaxDailyDrawdownR = getEnvFloatOrDefault("MAX_DAILY_DRAWDOWN_R", cfg.RiskConfig.MaxDailyDrawdownR)
	cfg.RiskConfig.RiskPerTradePercent = getEnvFloatOrDefault("RISK_PER_TRADE_PERCENT", cfg.RiskConfig.RiskPerTradePercent)
	cfg.RiskConfig.MinRRRatio = getEnvFloatOrDefault("MIN_RR_RATIO", cfg.RiskConfig.MinRRRatio)
	cfg.RiskConfig.MaxTradeDurationMins = getEnvIntOrDefault("MAX_TRADE_DURATION_MINS", cfg.RiskConfig.MaxTradeDurationMins)
	cfg.RiskConfig.AllowKillswitchRecover = getEnvBoolOrDefault("ALLOW_KILLSWITCH_RECOVER", cfg.RiskConfig.AllowKillswitchRecover)

	cfg.AIConfig.Provider = getEnvOrDefault("AI_PROVIDER", cfg.AIConfig.Provider)
	cfg.AIConfig.BaseURL = getEnvOrDefault("AI_BASE_URL", cfg.AIConfig.BaseURL)
	cfg.AIConfig.APIKey = getEnvOrDefault("AI_API_KEY", cfg.AIConfig.APIKey)
	cfg.AIConfig.Model = getEnvOrDefault("AI_MODEL", cfg.AIConfig.Model)
	cfg.AIConfig.TimeoutSecs = getEnvIntOrDefault("AI_TIMEOUT_SECS", cfg.AIConfig.TimeoutSecs)
	cfg.AIConfig.GuidePath = getEnvOrDefault("AI_GUIDE_PATH", cfg.AIConfig.GuidePath)

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)

	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.InternalToken = getEnvOrDefault("INTERNAL_API_TOKEN", cfg.ServerConfig.InternalToken)

	cfg.NotificationConfig.Enabled = getEnvBoolOrDefault("NOTIFICATIONS_ENABLED", cfg.NotificationConfig.Enabled)
	cfg.NotificationConfig.Telegram.Enabled = getEnvBoolOrDefault("TELEGRAM_ENABLED", cfg.NotificationConfig.Telegram.Enabled)
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Telegram.IncludeWait = getEnvBoolOrDefault("TELEGRAM_INCLUDE_WAIT", cfg.NotificationConfig.Telegram.IncludeWait)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Format = getEnvOrDefault("LOG_FORMAT", cfg.LoggingConfig.Format)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
}

func loadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return &cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

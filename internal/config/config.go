package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinEquityQuoteDelay is the floor for the pause between US equity quotes.
const MinEquityQuoteDelay = 500 * time.Millisecond

type Config struct {
	// API
	APIPort         int
	APIKey          string
	CORSAllowOrigin string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Market data providers
	CoinGeckoBaseURL           string
	CoinGeckoAPIKey            string
	CoinGeckoRequestsPerMinute int
	FinnhubBaseURL             string
	FinnhubKey                 string
	NSEEnabled                 bool
	NSEBaseURL                 string
	EquityQuoteDelayMS         int
	DetailCacheSeconds         int

	// Schedules (cron, minute resolution)
	PriceSchedule    string
	ScannerSchedule  string
	StrategySchedule string

	// Jobs
	StrategyOHLCDays int
	BackfillDays     int

	// Notifications
	EmailHost       string
	EmailPort       int
	EmailUser       string
	EmailPass       string
	EmailFrom       string
	WebhookURL      string
	BotName         string
	NotifyQueueSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:         envInt("API_PORT", 5000),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "console"),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "asset_tracker"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		CoinGeckoBaseURL:           envStr("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:            envStr("COINGECKO_API_KEY", ""),
		CoinGeckoRequestsPerMinute: envInt("COINGECKO_REQUESTS_PER_MINUTE", 30),
		FinnhubBaseURL:             envStr("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		FinnhubKey:                 envStr("FINNHUB_KEY", ""),
		NSEEnabled:                 envBool("NSE_ENABLED", true),
		NSEBaseURL:                 envStr("NSE_BASE_URL", "https://www.nseindia.com"),
		EquityQuoteDelayMS:         envInt("EQUITY_QUOTE_DELAY_MS", 500),
		DetailCacheSeconds:         envInt("DETAIL_CACHE_SECONDS", 30),

		PriceSchedule:    envStr("PRICE_SCHEDULE", "*/1 * * * *"),
		ScannerSchedule:  envStr("SCANNER_SCHEDULE", "*/5 * * * *"),
		StrategySchedule: envStr("STRATEGY_SCHEDULE", "*/30 * * * *"),

		StrategyOHLCDays: envInt("STRATEGY_OHLC_DAYS", 2),
		BackfillDays:     envInt("BACKFILL_DAYS", 2920),

		EmailHost:       envStr("EMAIL_HOST", ""),
		EmailPort:       envInt("EMAIL_PORT", 587),
		EmailUser:       envStr("EMAIL_USER", ""),
		EmailPass:       envStr("EMAIL_PASS", ""),
		EmailFrom:       envStr("EMAIL_FROM", `"Financial Tracker" <no-reply@tracker.com>`),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "AssetTracker"),
		NotifyQueueSize: envInt("NOTIFY_QUEUE_SIZE", 100),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Sprintf("API_PORT %d out of range", c.APIPort))
	}
	if c.EquityQuoteDelay() < MinEquityQuoteDelay {
		errs = append(errs, fmt.Sprintf("EQUITY_QUOTE_DELAY_MS must be at least %d", MinEquityQuoteDelay.Milliseconds()))
	}
	if c.CoinGeckoRequestsPerMinute <= 0 {
		errs = append(errs, "COINGECKO_REQUESTS_PER_MINUTE must be positive")
	}
	if c.StrategyOHLCDays <= 0 {
		errs = append(errs, "STRATEGY_OHLC_DAYS must be positive")
	}
	if c.BackfillDays <= 0 {
		errs = append(errs, "BACKFILL_DAYS must be positive")
	}
	if c.NotifyQueueSize <= 0 {
		errs = append(errs, "NOTIFY_QUEUE_SIZE must be positive")
	}
	for key, spec := range map[string]string{
		"PRICE_SCHEDULE":    c.PriceSchedule,
		"SCANNER_SCHEDULE":  c.ScannerSchedule,
		"STRATEGY_SCHEDULE": c.StrategySchedule,
	} {
		if len(strings.Fields(spec)) != 5 {
			errs = append(errs, fmt.Sprintf("%s %q must have five cron fields", key, spec))
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT %q must be console or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Warnings lists settings that are legal but leave a capability switched off.
func (c *Config) Warnings() []string {
	var w []string
	if c.FinnhubKey == "" {
		w = append(w, "FINNHUB_KEY not set, US equity quotes unavailable")
	}
	if !c.NSEEnabled {
		w = append(w, "NSE_ENABLED=false, Indian equities and commodity proxies unavailable")
	}
	if c.EmailHost == "" {
		w = append(w, "EMAIL_HOST not set, notifications are logged only")
	}
	if c.APIKey == "" {
		w = append(w, "API_KEY not set, REST API has no authentication")
	}
	return w
}

func (c *Config) Print() {
	fmt.Println("=== Asset Tracker Configuration ===")
	fmt.Printf("API Port: %d\n", c.APIPort)
	fmt.Printf("Database: %s@%s:%d/%s\n", c.DBUser, c.DBHost, c.DBPort, c.DBName)
	fmt.Println("--------------------------------------")
	fmt.Println("Market Data:")
	fmt.Printf("  CoinGecko: %s (%d req/min)\n", c.CoinGeckoBaseURL, c.CoinGeckoRequestsPerMinute)
	fmt.Printf("  Finnhub: %s\n", boolLabel(c.FinnhubKey != "", "configured", "not set"))
	fmt.Printf("  NSE: %s\n", boolLabel(c.NSEEnabled, "enabled", "disabled"))
	fmt.Printf("  US quote delay: %dms\n", c.EquityQuoteDelayMS)
	fmt.Println("--------------------------------------")
	fmt.Println("Schedules:")
	fmt.Printf("  Prices: %s\n", c.PriceSchedule)
	fmt.Printf("  Scanner: %s\n", c.ScannerSchedule)
	fmt.Printf("  Strategy: %s (%d days of candles)\n", c.StrategySchedule, c.StrategyOHLCDays)
	fmt.Println("--------------------------------------")
	fmt.Printf("Email: %s\n", boolLabel(c.EmailHost != "", c.EmailHost, "disabled (log only)"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) EquityQuoteDelay() time.Duration {
	return time.Duration(c.EquityQuoteDelayMS) * time.Millisecond
}

func (c *Config) DetailCacheTTL() time.Duration {
	return time.Duration(c.DetailCacheSeconds) * time.Second
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

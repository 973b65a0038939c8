package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EQUITY_QUOTE_DELAY_MS", "")
	t.Setenv("PRICE_SCHEDULE", "")
	t.Setenv("STRATEGY_OHLC_DAYS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.EquityQuoteDelay())
	assert.Equal(t, "*/1 * * * *", cfg.PriceSchedule)
	assert.Equal(t, 2, cfg.StrategyOHLCDays)
}

func TestValidateRejectsShortQuoteDelay(t *testing.T) {
	t.Setenv("EQUITY_QUOTE_DELAY_MS", "100")
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EQUITY_QUOTE_DELAY_MS")
}

func TestValidateRejectsBadSchedule(t *testing.T) {
	t.Setenv("EQUITY_QUOTE_DELAY_MS", "")
	t.Setenv("SCANNER_SCHEDULE", "@every 5m")
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCANNER_SCHEDULE")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TRACKER_TEST_INT", "nope")
	assert.Equal(t, 7, envInt("TRACKER_TEST_INT", 7))
	t.Setenv("TRACKER_TEST_BOOL", "YES")
	assert.True(t, envBool("TRACKER_TEST_BOOL", false))
	assert.False(t, envBool("TRACKER_TEST_UNSET", false))
}

func TestDSN(t *testing.T) {
	c := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 1, DBName: "d"}
	assert.Equal(t, "postgres://u:p@h:1/d?sslmode=disable", c.DSN())
}

func TestWarnings(t *testing.T) {
	c := &Config{NSEEnabled: true, FinnhubKey: "k", EmailHost: "smtp", APIKey: "x"}
	assert.Empty(t, c.Warnings())
	c.FinnhubKey = ""
	assert.Len(t, c.Warnings(), 1)
}

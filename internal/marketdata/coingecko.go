package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjannette/trahn-tracker/internal/models"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient serves every crypto capability. Requests share one
// client-side budget so the free tier's per-minute limit holds.
type CoinGeckoClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewCoinGeckoClient(baseURL, apiKey string, requestsPerMinute int) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

func (c *CoinGeckoClient) BatchSpotPrice(ctx context.Context, ids []string) (map[string]float64, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")

	var data map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := c.get(ctx, "/simple/price", q, &data); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(data))
	for id, v := range data {
		if v.USD > 0 {
			out[id] = v.USD
		}
	}
	return out, nil
}

type marketCoin struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice float64  `json:"current_price"`
	Change24h    *float64 `json:"price_change_percentage_24h"`
	Change1hCur  *float64 `json:"price_change_percentage_1h_in_currency"`
	Change24hCur *float64 `json:"price_change_percentage_24h_in_currency"`
	Change7dCur  *float64 `json:"price_change_percentage_7d_in_currency"`
}

func (m marketCoin) change(window string) *float64 {
	switch window {
	case "1h":
		return m.Change1hCur
	case "24h":
		if m.Change24hCur != nil {
			return m.Change24hCur
		}
		return m.Change24h
	case "7d":
		return m.Change7dCur
	}
	return nil
}

// TopByMarketCap returns the n largest coins; Symbol is the ticker upper-cased.
// Coins without a change figure for window are left out.
func (c *CoinGeckoClient) TopByMarketCap(ctx context.Context, n int, window string) ([]Mover, error) {
	switch window {
	case "1h", "24h", "7d":
	default:
		return nil, fmt.Errorf("coingecko: unsupported change window %q", window)
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(n))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", window)

	var coins []marketCoin
	if err := c.get(ctx, "/coins/markets", q, &coins); err != nil {
		return nil, err
	}

	out := make([]Mover, 0, len(coins))
	for _, coin := range coins {
		ch := coin.change(window)
		if ch == nil {
			continue
		}
		out = append(out, Mover{
			Symbol:        strings.ToUpper(coin.Symbol),
			Name:          coin.Name,
			Price:         coin.CurrentPrice,
			PercentChange: *ch,
		})
	}
	return out, nil
}

// OHLCSeries returns candles for id, oldest first. CoinGecko picks the
// resolution from days (30 minutes for 1-2 days, 4 hours up to 30 days).
func (c *CoinGeckoClient) OHLCSeries(ctx context.Context, id string, days int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", strconv.Itoa(days))

	var rows [][]float64
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/ohlc", q, &rows); err != nil {
		return nil, err
	}

	out := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 5 {
			continue
		}
		out = append(out, models.Candle{
			Timestamp: time.UnixMilli(int64(r[0])).UTC(),
			Open:      r[1],
			High:      r[2],
			Low:       r[3],
			Close:     r[4],
		})
	}
	return out, nil
}

// DailyHistory returns one sample per day over the lookback, oldest first.
func (c *CoinGeckoClient) DailyHistory(ctx context.Context, id string, days int) ([]models.PricePoint, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", strconv.Itoa(days))
	q.Set("interval", "daily")

	var data struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q, &data); err != nil {
		return nil, err
	}

	out := make([]models.PricePoint, 0, len(data.Prices))
	for _, p := range data.Prices {
		if len(p) < 2 || p[1] <= 0 {
			continue
		}
		out = append(out, models.PricePoint{Timestamp: time.UnixMilli(int64(p[0])).UTC(), Price: p[1]})
	}
	return out, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("coingecko rate wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("coingecko %s returned status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// FinnhubClient quotes US equities one symbol at a time.
type FinnhubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewFinnhubClient(baseURL, token string) *FinnhubClient {
	if baseURL == "" {
		baseURL = DefaultFinnhubURL
	}
	return &FinnhubClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *FinnhubClient) SingleSpotPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("finnhub fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("finnhub returned status %d for %s", resp.StatusCode, symbol)
	}

	var data struct {
		Current float64 `json:"c"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	// unknown symbols come back as all-zero quotes
	if data.Current <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	return data.Current, nil
}

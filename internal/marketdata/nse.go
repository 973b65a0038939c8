package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const DefaultNSEURL = "https://www.nseindia.com"

// NSEClient reads the National Stock Exchange of India's public JSON API.
// The API only answers browsers holding a session cookie, so the client
// visits the home page once and reuses the cookie jar.
type NSEClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache

	mu     sync.Mutex
	primed bool
}

func NewNSEClient(baseURL string, ttl time.Duration) *NSEClient {
	if baseURL == "" {
		baseURL = DefaultNSEURL
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &NSEClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second, Jar: jar},
		cache:      cache.New(ttl, 2*ttl),
	}
}

type nseIndexRow struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"lastPrice"`
	PChange   float64 `json:"pChange"`
	Priority  int     `json:"priority"`
}

// IndexConstituents returns the members of index. The index's own summary
// row (priority 1) is left out.
func (c *NSEClient) IndexConstituents(ctx context.Context, index string) ([]Mover, error) {
	key := "index:" + index
	if v, ok := c.cache.Get(key); ok {
		return v.([]Mover), nil
	}

	q := url.Values{}
	q.Set("index", index)
	var data struct {
		Data []nseIndexRow `json:"data"`
	}
	if err := c.get(ctx, "/api/equity-stockIndices", q, &data); err != nil {
		return nil, err
	}

	out := make([]Mover, 0, len(data.Data))
	for _, r := range data.Data {
		if r.Priority == 1 || r.Symbol == index {
			continue
		}
		out = append(out, Mover{Symbol: r.Symbol, Name: r.Symbol, Price: r.LastPrice, PercentChange: r.PChange})
	}
	c.cache.SetDefault(key, out)
	return out, nil
}

func (c *NSEClient) SymbolDetail(ctx context.Context, symbol string) (Mover, error) {
	key := "detail:" + symbol
	if v, ok := c.cache.Get(key); ok {
		return v.(Mover), nil
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	var data struct {
		Info struct {
			CompanyName string `json:"companyName"`
		} `json:"info"`
		PriceInfo *struct {
			LastPrice float64 `json:"lastPrice"`
			PChange   float64 `json:"pChange"`
		} `json:"priceInfo"`
	}
	if err := c.get(ctx, "/api/quote-equity", q, &data); err != nil {
		return Mover{}, err
	}
	if data.PriceInfo == nil || data.PriceInfo.LastPrice <= 0 {
		return Mover{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}

	m := Mover{
		Symbol:        symbol,
		Name:          data.Info.CompanyName,
		Price:         data.PriceInfo.LastPrice,
		PercentChange: data.PriceInfo.PChange,
	}
	c.cache.SetDefault(key, m)
	return m, nil
}

func (c *NSEClient) prime(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primed {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	setBrowserHeaders(req, c.baseURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nse session: %w", err)
	}
	resp.Body.Close()
	c.primed = true
	return nil
}

func (c *NSEClient) expire() {
	c.mu.Lock()
	c.primed = false
	c.mu.Unlock()
}

func (c *NSEClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.prime(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	setBrowserHeaders(req, c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nse fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// session cookie expired; the next call re-primes
		c.expire()
		return fmt.Errorf("nse %s returned status %d", path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("nse %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func setBrowserHeaders(req *http.Request, baseURL string) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", baseURL+"/")
}

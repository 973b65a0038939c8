package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kjannette/trahn-tracker/internal/marketdata"
	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/notifications"
)

// FakeMarket serves every marketdata source from in-memory tables.
// Unknown symbols resolve to marketdata.ErrNoData. Err, when set, fails every call.
type FakeMarket struct {
	mu sync.Mutex

	Spot    map[string]float64
	Top     []marketdata.Mover
	Candles map[string][]models.Candle
	History map[string][]models.PricePoint
	Quotes  map[string]float64
	Index   map[string][]marketdata.Mover
	Details map[string]marketdata.Mover
	Err     error

	calls      []string
	quoteTimes []time.Time
}

func (f *FakeMarket) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the provider calls seen so far, in order.
func (f *FakeMarket) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallsWithPrefix filters Calls by prefix, e.g. "batch:".
func (f *FakeMarket) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeMarket) QuoteTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.quoteTimes...)
}

func (f *FakeMarket) BatchSpotPrice(_ context.Context, ids []string) (map[string]float64, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	f.record("batch:" + strings.Join(sorted, ","))
	if f.Err != nil {
		return nil, f.Err
	}
	out := make(map[string]float64)
	for _, id := range ids {
		if p, ok := f.Spot[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *FakeMarket) TopByMarketCap(_ context.Context, n int, window string) ([]marketdata.Mover, error) {
	f.record(fmt.Sprintf("top:%d:%s", n, window))
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Top, nil
}

func (f *FakeMarket) OHLCSeries(_ context.Context, id string, days int) ([]models.Candle, error) {
	f.record(fmt.Sprintf("ohlc:%s:%d", id, days))
	if f.Err != nil {
		return nil, f.Err
	}
	c, ok := f.Candles[id]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return c, nil
}

func (f *FakeMarket) DailyHistory(_ context.Context, id string, days int) ([]models.PricePoint, error) {
	f.record(fmt.Sprintf("history:%s:%d", id, days))
	if f.Err != nil {
		return nil, f.Err
	}
	h, ok := f.History[id]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return h, nil
}

func (f *FakeMarket) SingleSpotPrice(_ context.Context, symbol string) (float64, error) {
	f.record("quote:" + symbol)
	f.mu.Lock()
	f.quoteTimes = append(f.quoteTimes, time.Now())
	f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	p, ok := f.Quotes[symbol]
	if !ok {
		return 0, marketdata.ErrNoData
	}
	return p, nil
}

func (f *FakeMarket) IndexConstituents(_ context.Context, index string) ([]marketdata.Mover, error) {
	f.record("index:" + index)
	if f.Err != nil {
		return nil, f.Err
	}
	m, ok := f.Index[index]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return m, nil
}

func (f *FakeMarket) SymbolDetail(_ context.Context, symbol string) (marketdata.Mover, error) {
	f.record("detail:" + symbol)
	if f.Err != nil {
		return marketdata.Mover{}, f.Err
	}
	m, ok := f.Details[symbol]
	if !ok {
		return marketdata.Mover{}, marketdata.ErrNoData
	}
	return m, nil
}

// AllProviders wires f into every capability.
func (f *FakeMarket) AllProviders() marketdata.Providers {
	return marketdata.Providers{Crypto: f, EquityQuotes: f, Exchange: f}
}

// RecordingNotifier keeps every notification in memory.
type RecordingNotifier struct {
	mu   sync.Mutex
	msgs []notifications.Message
}

func (r *RecordingNotifier) Notify(to, subject, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, notifications.Message{To: to, Subject: subject, Body: body})
}

func (r *RecordingNotifier) Messages() []notifications.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Message(nil), r.msgs...)
}

// Clock is a settable time source for jobs.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Package memory is a process-local implementation of the repository contracts.
// It backs the job tests and demo runs without a database.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kjannette/trahn-tracker/internal/models"
	"github.com/kjannette/trahn-tracker/internal/repository"
)

type DB struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]models.User
	assets    map[int64]models.Asset
	prices    []models.PriceObservation
	anomalies []models.Anomaly
	market    []models.MarketAnomaly
	alerts    []models.Alert
}

func New() *DB {
	return &DB{
		users:  make(map[int64]models.User),
		assets: make(map[int64]models.Asset),
	}
}

// PutUser inserts or replaces a user. Users are owned by the auth collaborator;
// this is the only way they enter the memory store.
func (d *DB) PutUser(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *DB) Store() *repository.Store {
	return &repository.Store{
		Assets:          assetStore{d},
		Prices:          priceStore{d},
		Anomalies:       anomalyStore{d},
		MarketAnomalies: marketStore{d},
		Alerts:          alertStore{d},
	}
}

func (d *DB) id() int64 {
	d.nextID++
	return d.nextID
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// ---------- assets ----------

type assetStore struct{ d *DB }

func (s assetStore) Create(_ context.Context, a *models.Asset) (*models.Asset, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := *a
	out.ID = s.d.id()
	out.CreatedAt = stamp(out.CreatedAt)
	s.d.assets[out.ID] = out
	return &out, nil
}

func (s assetStore) Get(_ context.Context, id int64) (*models.Asset, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	a, ok := s.d.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s assetStore) ListByUser(_ context.Context, userID int64) ([]models.Asset, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []models.Asset
	for _, a := range s.d.assets {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y models.Asset) int { return cmp.Compare(x.ID, y.ID) })
	return out, nil
}

func (s assetStore) ListTracked(_ context.Context) ([]models.TrackedAsset, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []models.TrackedAsset
	for _, a := range s.d.assets {
		u, ok := s.d.users[a.UserID]
		if !ok {
			continue
		}
		out = append(out, models.TrackedAsset{Asset: a, Owner: u})
	}
	slices.SortFunc(out, func(x, y models.TrackedAsset) int { return cmp.Compare(x.ID, y.ID) })
	return out, nil
}

func (s assetStore) Delete(_ context.Context, id int64) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if _, ok := s.d.assets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.d.assets, id)
	s.d.prices = slices.DeleteFunc(s.d.prices, func(p models.PriceObservation) bool { return p.AssetID == id })
	s.d.anomalies = slices.DeleteFunc(s.d.anomalies, func(a models.Anomaly) bool { return a.AssetID == id })
	return nil
}

// ---------- prices ----------

type priceStore struct{ d *DB }

func (s priceStore) Record(_ context.Context, assetID int64, price float64, ts time.Time) (*models.PriceObservation, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	p := models.PriceObservation{ID: s.d.id(), AssetID: assetID, Price: price, Timestamp: ts}
	s.d.prices = append(s.d.prices, p)
	return &p, nil
}

func (s priceStore) RecordMany(_ context.Context, assetID int64, points []models.PricePoint) (int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	seen := make(map[int64]bool)
	for _, p := range s.d.prices {
		if p.AssetID == assetID {
			seen[p.Timestamp.UnixNano()] = true
		}
	}
	var inserted int64
	for _, pt := range points {
		key := pt.Timestamp.UnixNano()
		if seen[key] {
			continue
		}
		seen[key] = true
		s.d.prices = append(s.d.prices, models.PriceObservation{
			ID: s.d.id(), AssetID: assetID, Price: pt.Price, Timestamp: pt.Timestamp,
		})
		inserted++
	}
	return inserted, nil
}

func newestFirst(x, y models.PriceObservation) int {
	if c := y.Timestamp.Compare(x.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(y.ID, x.ID)
}

func (s priceStore) filter(assetID, excludeID int64) []models.PriceObservation {
	var out []models.PriceObservation
	for _, p := range s.d.prices {
		if p.AssetID == assetID && p.ID != excludeID {
			out = append(out, p)
		}
	}
	return out
}

func (s priceStore) Window(_ context.Context, assetID, excludeID int64, limit int) ([]models.PriceObservation, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := s.filter(assetID, excludeID)
	slices.SortFunc(out, newestFirst)
	return head(out, limit), nil
}

func (s priceStore) History(_ context.Context, assetID int64, limit int) ([]models.PriceObservation, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := s.filter(assetID, 0)
	slices.SortFunc(out, func(x, y models.PriceObservation) int { return newestFirst(y, x) })
	return head(out, limit), nil
}

func (s priceStore) Latest(_ context.Context, assetID int64) (*models.PriceObservation, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := s.filter(assetID, 0)
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	slices.SortFunc(out, newestFirst)
	return &out[0], nil
}

// ---------- anomalies ----------

type anomalyStore struct{ d *DB }

func (s anomalyStore) Record(_ context.Context, a *models.Anomaly) (*models.Anomaly, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := *a
	out.ID = s.d.id()
	out.Timestamp = stamp(out.Timestamp)
	s.d.anomalies = append(s.d.anomalies, out)
	return &out, nil
}

func (s anomalyStore) ListByAsset(_ context.Context, assetID int64, limit int) ([]models.Anomaly, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []models.Anomaly
	for _, a := range s.d.anomalies {
		if a.AssetID == assetID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y models.Anomaly) int {
		if c := y.Timestamp.Compare(x.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(y.ID, x.ID)
	})
	return head(out, limit), nil
}

// ---------- market anomalies ----------

type marketStore struct{ d *DB }

func (s marketStore) FindSince(_ context.Context, symbol string, since time.Time) (*models.MarketAnomaly, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var found *models.MarketAnomaly
	for i := range s.d.market {
		m := s.d.market[i]
		if m.Symbol != symbol || !m.Timestamp.After(since) {
			continue
		}
		if found == nil || m.Timestamp.After(found.Timestamp) {
			found = &m
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s marketStore) Record(_ context.Context, m *models.MarketAnomaly) (*models.MarketAnomaly, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := *m
	out.ID = s.d.id()
	out.Timestamp = stamp(out.Timestamp)
	s.d.market = append(s.d.market, out)
	return &out, nil
}

func (s marketStore) ListRecent(_ context.Context, limit int) ([]models.MarketAnomaly, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := slices.Clone(s.d.market)
	slices.SortFunc(out, func(x, y models.MarketAnomaly) int {
		if c := y.Timestamp.Compare(x.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(y.ID, x.ID)
	})
	return head(out, limit), nil
}

// ---------- alerts ----------

type alertStore struct{ d *DB }

func (s alertStore) Record(_ context.Context, a *models.Alert) (*models.Alert, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	out := *a
	out.ID = s.d.id()
	out.CreatedAt = stamp(out.CreatedAt)
	s.d.alerts = append(s.d.alerts, out)
	return &out, nil
}

func (s alertStore) FindRecent(_ context.Context, userID int64, substr string, since time.Time) (*models.Alert, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var found *models.Alert
	for i := range s.d.alerts {
		a := s.d.alerts[i]
		if a.UserID != userID || !a.CreatedAt.After(since) || !strings.Contains(a.Message, substr) {
			continue
		}
		if found == nil || a.CreatedAt.After(found.CreatedAt) {
			found = &a
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (s alertStore) ListByUser(_ context.Context, userID int64, limit int) ([]models.Alert, error) {
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	var out []models.Alert
	for _, a := range s.d.alerts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y models.Alert) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(y.ID, x.ID)
	})
	return head(out, limit), nil
}

func head[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

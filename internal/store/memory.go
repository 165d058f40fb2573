package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Memory struct {
	mu     sync.RWMutex
	plans  map[string]PlanRecord
	runs   map[string][]RunSummary
	keys   map[string]string
	prices map[string]PriceEntry
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		plans:  map[string]PlanRecord{},
		runs:   map[string][]RunSummary{},
		keys:   map[string]string{},
		prices: map[string]PriceEntry{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) SavePlan(_ context.Context, rec PlanRecord) (PlanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.plans[rec.ID]; ok && rec.ID != "" {
		rec.CreatedAt = prev.CreatedAt
	}
	rec, err := preparePlan(rec, m.now())
	if err != nil {
		return PlanRecord{}, err
	}
	m.plans[rec.ID] = rec
	return rec, nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.plans[id]
	if !ok {
		return PlanRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListPlans(_ context.Context) ([]PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PlanRecord, 0, len(m.plans))
	for _, rec := range m.plans {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) DeletePlan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[id]; !ok {
		return ErrNotFound
	}
	delete(m.plans, id)
	for _, run := range m.runs[id] {
		delete(m.keys, run.IdempotencyKey)
	}
	delete(m.runs, id)
	return nil
}

func (m *Memory) AddRun(_ context.Context, run RunSummary) (RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[run.PlanID]; !ok {
		return RunSummary{}, ErrNotFound
	}
	run = prepareRun(run, m.now())
	if _, dup := m.keys[run.IdempotencyKey]; dup {
		return RunSummary{}, ErrDuplicateIdempotency
	}
	m.keys[run.IdempotencyKey] = run.ID
	m.runs[run.PlanID] = append(m.runs[run.PlanID], run)
	return run, nil
}

func (m *Memory) ListRuns(_ context.Context, planID string, limit int) ([]RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.plans[planID]; !ok {
		return nil, ErrNotFound
	}
	runs := m.runs[planID]
	limit = clampLimit(limit)
	out := make([]RunSummary, 0, min(limit, len(runs)))
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}

func (m *Memory) Prices(_ context.Context) ([]PriceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PriceEntry, 0, len(m.prices))
	for _, p := range m.prices {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *Memory) SetPrice(_ context.Context, itemID string, price decimal.Decimal) (PriceEntry, error) {
	itemID, err := preparePrice(itemID, price)
	if err != nil {
		return PriceEntry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := PriceEntry{ItemID: itemID, Price: price, UpdatedAt: m.now()}
	m.prices[itemID] = entry
	return entry, nil
}

func (m *Memory) Close() error {
	return nil
}

package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymsim/internal/gym"
	"gymsim/internal/store"

	"github.com/shopspring/decimal"
)

var ErrTooManyStates = errors.New("too many comparison states")

type Service struct {
	store      store.Store
	catalog    gym.Catalog
	log        *slog.Logger
	compareMax int
}

type Comparison struct {
	Name   string               `json:"name"`
	Result gym.SimulationResult `json:"result"`
}

type RunOutcome struct {
	Run    store.RunSummary     `json:"run"`
	Result gym.SimulationResult `json:"result"`
}

func NewService(st store.Store, catalog gym.Catalog, logger *slog.Logger, compareMax int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog.IsZero() {
		catalog = gym.DefaultCatalog()
	}
	if compareMax < 1 {
		compareMax = 8
	}
	return &Service{
		store:      st,
		catalog:    catalog,
		log:        logger,
		compareMax: compareMax,
	}
}

func (s *Service) Catalog() gym.Catalog {
	return s.catalog
}

// Check converts and validates a plan without simulating it.
func (s *Service) Check(p gym.Plan) (gym.SimulationConfig, error) {
	cfg, err := p.Config(s.catalog, nil)
	if err != nil {
		return gym.SimulationConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return gym.SimulationConfig{}, err
	}
	return cfg, nil
}

func (s *Service) SavePlan(ctx context.Context, rec store.PlanRecord) (store.PlanRecord, error) {
	if _, err := s.Check(rec.Plan); err != nil {
		return store.PlanRecord{}, err
	}
	saved, err := s.store.SavePlan(ctx, rec)
	if err != nil {
		return store.PlanRecord{}, err
	}
	s.log.Info("plan saved", "plan_id", saved.ID, "name", saved.Name, "days", saved.Plan.TotalDays)
	return saved, nil
}

func (s *Service) GetPlan(ctx context.Context, id string) (store.PlanRecord, error) {
	return s.store.GetPlan(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context) ([]store.PlanRecord, error) {
	return s.store.ListPlans(ctx)
}

func (s *Service) DeletePlan(ctx context.Context, id string) error {
	if err := s.store.DeletePlan(ctx, id); err != nil {
		return err
	}
	s.log.Info("plan deleted", "plan_id", id)
	return nil
}

func (s *Service) ListRuns(ctx context.Context, planID string, limit int) ([]store.RunSummary, error) {
	return s.store.ListRuns(ctx, planID, limit)
}

// Simulate runs a plan without persisting it. Costs are tracked against stored
// prices only when withCosts is set.
func (s *Service) Simulate(ctx context.Context, p gym.Plan, withCosts bool) (gym.SimulationResult, error) {
	prices, err := s.priceTable(ctx, withCosts)
	if err != nil {
		return gym.SimulationResult{}, err
	}
	cfg, err := p.Config(s.catalog, prices)
	if err != nil {
		return gym.SimulationResult{}, err
	}
	return gym.Simulate(cfg)
}

func (s *Service) Compare(ctx context.Context, plans []gym.Plan, withCosts bool) ([]Comparison, error) {
	if len(plans) == 0 {
		return []Comparison{}, nil
	}
	if len(plans) > s.compareMax {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyStates, len(plans), s.compareMax)
	}
	prices, err := s.priceTable(ctx, withCosts)
	if err != nil {
		return nil, err
	}
	configs := make([]gym.SimulationConfig, len(plans))
	for i, p := range plans {
		cfg, err := p.Config(s.catalog, prices)
		if err != nil {
			return nil, fmt.Errorf("state %d: %w", i, err)
		}
		configs[i] = cfg
	}

	start := time.Now()
	results, err := gym.SimulateAll(ctx, configs)
	if err != nil {
		return nil, err
	}
	s.log.Info("comparison finished", "states", len(plans), "elapsed_ms", time.Since(start).Milliseconds())

	out := make([]Comparison, len(plans))
	for i, res := range results {
		name := plans[i].Name
		if name == "" {
			name = fmt.Sprintf("state %d", i+1)
		}
		out[i] = Comparison{Name: name, Result: res}
	}
	return out, nil
}

// RunPlan simulates a saved plan against the current price table and records the summary.
func (s *Service) RunPlan(ctx context.Context, planID, idempotencyKey string) (RunOutcome, error) {
	rec, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return RunOutcome{}, err
	}
	res, err := s.Simulate(ctx, rec.Plan, true)
	if err != nil {
		return RunOutcome{}, err
	}
	run, err := s.store.AddRun(ctx, Summarize(rec.ID, idempotencyKey, res))
	if err != nil {
		return RunOutcome{}, err
	}
	s.log.Info("plan run recorded",
		"plan_id", rec.ID,
		"run_id", run.ID,
		"final_total", run.FinalStats.Sum(),
		"final_gym", run.FinalGym,
	)
	return RunOutcome{Run: run, Result: res}, nil
}

// RerunAll re-runs every saved plan. A failing plan is logged and skipped.
func (s *Service) RerunAll(ctx context.Context) (int, error) {
	plans, err := s.store.ListPlans(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	ok := 0
	for _, rec := range plans {
		if err := ctx.Err(); err != nil {
			return ok, err
		}
		if _, err := s.RunPlan(ctx, rec.ID, ""); err != nil {
			s.log.Error("plan rerun failed", "plan_id", rec.ID, "name", rec.Name, "error", err)
			errs = append(errs, fmt.Errorf("plan %s: %w", rec.ID, err))
			continue
		}
		ok++
	}
	return ok, errors.Join(errs...)
}

func (s *Service) Prices(ctx context.Context) ([]store.PriceEntry, error) {
	return s.store.Prices(ctx)
}

func (s *Service) SetPrice(ctx context.Context, itemID string, price decimal.Decimal) (store.PriceEntry, error) {
	entry, err := s.store.SetPrice(ctx, itemID, price)
	if err != nil {
		return store.PriceEntry{}, err
	}
	s.log.Info("price updated", "item_id", entry.ItemID, "price", entry.Price.String())
	return entry, nil
}

func (s *Service) priceTable(ctx context.Context, withCosts bool) (gym.PriceTable, error) {
	if !withCosts {
		return nil, nil
	}
	entries, err := s.store.Prices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return store.PriceTable(entries), nil
}

func Summarize(planID, idempotencyKey string, res gym.SimulationResult) store.RunSummary {
	run := store.RunSummary{
		PlanID:         planID,
		IdempotencyKey: idempotencyKey,
		TotalDays:      len(res.Snapshots),
		FinalStats:     res.FinalStats,
		FinalGym:       res.FinalGym,
		GymChanges:     len(res.GymChanges),
		TotalEnergy:    res.TotalEnergy,
	}
	if res.Costs != nil {
		run.TotalCost = decimal.NewNullDecimal(res.Costs.TotalCost)
		run.Net = decimal.NewNullDecimal(res.Costs.Net)
	}
	return run
}

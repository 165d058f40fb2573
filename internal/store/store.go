package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymsim/internal/gym"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrInvalidItem          = errors.New("item id must be non-empty")
	ErrNegativePrice        = errors.New("price must be >= 0")
	ErrInvalidID            = errors.New("id must be a uuid")
	ErrMissingName          = errors.New("plan name is required")
)

type PlanRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      gym.Plan  `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunSummary is the persisted outcome of one simulation of a saved plan. Day-level
// snapshots are not stored.
type RunSummary struct {
	ID             string              `json:"id"`
	PlanID         string              `json:"plan_id"`
	IdempotencyKey string              `json:"idempotency_key"`
	RanAt          time.Time           `json:"ran_at"`
	TotalDays      int                 `json:"total_days"`
	FinalStats     gym.StatVector      `json:"final_stats"`
	FinalGym       int                 `json:"final_gym"`
	GymChanges     int                 `json:"gym_changes"`
	TotalEnergy    float64             `json:"total_energy"`
	TotalCost      decimal.NullDecimal `json:"total_cost"`
	Net            decimal.NullDecimal `json:"net"`
}

type PriceEntry struct {
	ItemID    string          `json:"item_id"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Store interface {
	SavePlan(ctx context.Context, rec PlanRecord) (PlanRecord, error)
	GetPlan(ctx context.Context, id string) (PlanRecord, error)
	ListPlans(ctx context.Context) ([]PlanRecord, error)
	DeletePlan(ctx context.Context, id string) error

	AddRun(ctx context.Context, run RunSummary) (RunSummary, error)
	ListRuns(ctx context.Context, planID string, limit int) ([]RunSummary, error)

	Prices(ctx context.Context) ([]PriceEntry, error)
	SetPrice(ctx context.Context, itemID string, price decimal.Decimal) (PriceEntry, error)

	Close() error
}

// PriceTable flattens stored prices into the table the simulator reads.
func PriceTable(entries []PriceEntry) gym.StaticPrices {
	out := make(gym.StaticPrices, len(entries))
	for _, e := range entries {
		out[e.ItemID] = e.Price
	}
	return out
}

func preparePlan(rec PlanRecord, now time.Time) (PlanRecord, error) {
	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		rec.Name = strings.TrimSpace(rec.Plan.Name)
	}
	if rec.Name == "" {
		return rec, ErrMissingName
	}
	rec.Plan.Name = rec.Name
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return rec, ErrInvalidID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return rec, nil
}

func prepareRun(run RunSummary, now time.Time) RunSummary {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if strings.TrimSpace(run.IdempotencyKey) == "" {
		run.IdempotencyKey = uuid.NewString()
	}
	if run.RanAt.IsZero() {
		run.RanAt = now
	}
	return run
}

func preparePrice(itemID string, price decimal.Decimal) (string, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return "", ErrInvalidItem
	}
	if price.IsNegative() {
		return "", ErrNegativePrice
	}
	return itemID, nil
}

func encodePlan(p gym.Plan) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return raw, nil
}

func decodePlan(raw []byte) (gym.Plan, error) {
	var p gym.Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return gym.Plan{}, fmt.Errorf("decode stored plan: %w", err)
	}
	return p, nil
}

func nullDecimalText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func parseNullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

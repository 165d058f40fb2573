package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrTxConflict = errors.New("transaction conflict, retry")

type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an open pool and creates the gymsim schema if it is missing.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	p := &Postgres{db: pool}
	if err := p.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS gymsim;

		CREATE TABLE IF NOT EXISTS gymsim.plans (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			plan JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS gymsim.runs (
			id UUID PRIMARY KEY,
			plan_id UUID NOT NULL REFERENCES gymsim.plans(id) ON DELETE CASCADE,
			idempotency_key TEXT NOT NULL UNIQUE,
			ran_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			total_days INT NOT NULL,
			final_stats JSONB NOT NULL,
			final_gym INT NOT NULL,
			gym_changes INT NOT NULL,
			total_energy DOUBLE PRECISION NOT NULL,
			total_cost TEXT,
			net TEXT
		);

		CREATE TABLE IF NOT EXISTS gymsim.prices (
			item_id TEXT PRIMARY KEY,
			price TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_runs_plan_ran_at ON gymsim.runs (plan_id, ran_at DESC);
	`)
	return err
}

func (p *Postgres) SavePlan(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	rec, err := preparePlan(rec, time.Now().UTC())
	if err != nil {
		return PlanRecord{}, err
	}
	raw, err := encodePlan(rec.Plan)
	if err != nil {
		return PlanRecord{}, err
	}
	err = p.db.QueryRow(ctx, `
		INSERT INTO gymsim.plans (id, name, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, plan = EXCLUDED.plan, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, rec.ID, rec.Name, raw, rec.UpdatedAt).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("save plan: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func (p *Postgres) GetPlan(ctx context.Context, id string) (PlanRecord, error) {
	row := p.db.QueryRow(ctx, `
		SELECT id::text, name, plan, created_at, updated_at
		FROM gymsim.plans
		WHERE id::text = $1
	`, id)
	rec, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlanRecord{}, ErrNotFound
	}
	return rec, err
}

func (p *Postgres) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id::text, name, plan, created_at, updated_at
		FROM gymsim.plans
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PlanRecord{}
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) DeletePlan(ctx context.Context, id string) error {
	cmd, err := p.db.Exec(ctx, `DELETE FROM gymsim.plans WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AddRun(ctx context.Context, run RunSummary) (RunSummary, error) {
	run = prepareRun(run, time.Now().UTC())
	stats, err := run.FinalStats.MarshalJSON()
	if err != nil {
		return RunSummary{}, err
	}

	const maxAttempts = 5
	retryDelay := 50 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = func() error {
			tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM gymsim.plans WHERE id::text = $1)`, run.PlanID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO gymsim.runs (id, plan_id, idempotency_key, ran_at, total_days, final_stats, final_gym, gym_changes, total_energy, total_cost, net)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, run.ID, run.PlanID, run.IdempotencyKey, run.RanAt, run.TotalDays, stats, run.FinalGym, run.GymChanges, run.TotalEnergy,
				nullDecimalText(run.TotalCost), nullDecimalText(run.Net))
			if err != nil {
				if isUniqueViolation(err) {
					return ErrDuplicateIdempotency
				}
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return run, nil
		}
		if !isSerializationError(err) {
			return RunSummary{}, err
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return RunSummary{}, err
		}
		retryDelay *= 2
	}
	return RunSummary{}, ErrTxConflict
}

func (p *Postgres) ListRuns(ctx context.Context, planID string, limit int) ([]RunSummary, error) {
	if _, err := p.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	rows, err := p.db.Query(ctx, `
		SELECT id::text, plan_id::text, idempotency_key, ran_at, total_days, final_stats, final_gym, gym_changes, total_energy, total_cost, net
		FROM gymsim.runs
		WHERE plan_id::text = $1
		ORDER BY ran_at DESC
		LIMIT $2
	`, planID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var run RunSummary
		var stats []byte
		var cost, net *string
		if err := rows.Scan(&run.ID, &run.PlanID, &run.IdempotencyKey, &run.RanAt, &run.TotalDays, &stats,
			&run.FinalGym, &run.GymChanges, &run.TotalEnergy, &cost, &net); err != nil {
			return nil, err
		}
		if err := run.FinalStats.UnmarshalJSON(stats); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if run.TotalCost, err = parseNullDecimal(cost); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if run.Net, err = parseNullDecimal(net); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		run.RanAt = run.RanAt.UTC()
		out = append(out, run)
	}
	return out, rows.Err()
}

func (p *Postgres) Prices(ctx context.Context) ([]PriceEntry, error) {
	rows, err := p.db.Query(ctx, `SELECT item_id, price, updated_at FROM gymsim.prices ORDER BY item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PriceEntry{}
	for rows.Next() {
		var e PriceEntry
		var price string
		if err := rows.Scan(&e.ItemID, &price, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if e.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("price %s: %w", e.ItemID, err)
		}
		e.UpdatedAt = e.UpdatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) SetPrice(ctx context.Context, itemID string, price decimal.Decimal) (PriceEntry, error) {
	itemID, err := preparePrice(itemID, price)
	if err != nil {
		return PriceEntry{}, err
	}
	entry := PriceEntry{ItemID: itemID, Price: price}
	err = p.db.QueryRow(ctx, `
		INSERT INTO gymsim.prices (item_id, price, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (item_id) DO UPDATE SET price = EXCLUDED.price, updated_at = now()
		RETURNING updated_at
	`, itemID, price.String()).Scan(&entry.UpdatedAt)
	if err != nil {
		return PriceEntry{}, err
	}
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

func scanPlan(row pgx.Row) (PlanRecord, error) {
	var rec PlanRecord
	var raw []byte
	if err := row.Scan(&rec.ID, &rec.Name, &raw, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return PlanRecord{}, err
	}
	plan, err := decodePlan(raw)
	if err != nil {
		return PlanRecord{}, err
	}
	rec.Plan = plan
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

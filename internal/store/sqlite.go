package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLite keeps plans, run history and prices in a single local file.
type SQLite struct {
	conn *sqlx.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		plan_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		idempotency_key TEXT NOT NULL UNIQUE,
		ran_at TIMESTAMP NOT NULL,
		total_days INTEGER NOT NULL,
		final_stats_json TEXT NOT NULL,
		final_gym INTEGER NOT NULL,
		gym_changes INTEGER NOT NULL,
		total_energy REAL NOT NULL,
		total_cost TEXT,
		net TEXT
	);

	CREATE TABLE IF NOT EXISTS prices (
		item_id TEXT PRIMARY KEY,
		price TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_plan ON runs(plan_id, ran_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type planRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	PlanJSON  string    `db:"plan_json"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r planRow) record() (PlanRecord, error) {
	p, err := decodePlan([]byte(r.PlanJSON))
	if err != nil {
		return PlanRecord{}, err
	}
	return PlanRecord{ID: r.ID, Name: r.Name, Plan: p, CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()}, nil
}

type runRow struct {
	ID             string    `db:"id"`
	PlanID         string    `db:"plan_id"`
	IdempotencyKey string    `db:"idempotency_key"`
	RanAt          time.Time `db:"ran_at"`
	TotalDays      int       `db:"total_days"`
	FinalStatsJSON string    `db:"final_stats_json"`
	FinalGym       int       `db:"final_gym"`
	GymChanges     int       `db:"gym_changes"`
	TotalEnergy    float64   `db:"total_energy"`
	TotalCost      *string   `db:"total_cost"`
	Net            *string   `db:"net"`
}

func (r runRow) summary() (RunSummary, error) {
	out := RunSummary{
		ID:             r.ID,
		PlanID:         r.PlanID,
		IdempotencyKey: r.IdempotencyKey,
		RanAt:          r.RanAt.UTC(),
		TotalDays:      r.TotalDays,
		FinalGym:       r.FinalGym,
		GymChanges:     r.GymChanges,
		TotalEnergy:    r.TotalEnergy,
	}
	if err := out.FinalStats.UnmarshalJSON([]byte(r.FinalStatsJSON)); err != nil {
		return RunSummary{}, fmt.Errorf("decode final stats: %w", err)
	}
	var err error
	if out.TotalCost, err = parseNullDecimal(r.TotalCost); err != nil {
		return RunSummary{}, fmt.Errorf("decode total cost: %w", err)
	}
	if out.Net, err = parseNullDecimal(r.Net); err != nil {
		return RunSummary{}, fmt.Errorf("decode net: %w", err)
	}
	return out, nil
}

func (db *SQLite) SavePlan(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	if rec.ID != "" {
		var created time.Time
		err := db.conn.GetContext(ctx, &created, `SELECT created_at FROM plans WHERE id = ?`, rec.ID)
		switch {
		case err == nil:
			rec.CreatedAt = created.UTC()
		case !errors.Is(err, sql.ErrNoRows):
			return PlanRecord{}, err
		}
	}
	rec, err := preparePlan(rec, time.Now().UTC())
	if err != nil {
		return PlanRecord{}, err
	}
	raw, err := encodePlan(rec.Plan)
	if err != nil {
		return PlanRecord{}, err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO plans (id, name, plan_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, plan_json = excluded.plan_json, updated_at = excluded.updated_at
	`, rec.ID, rec.Name, string(raw), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return PlanRecord{}, fmt.Errorf("save plan: %w", err)
	}
	return rec, nil
}

func (db *SQLite) GetPlan(ctx context.Context, id string) (PlanRecord, error) {
	var row planRow
	err := db.conn.GetContext(ctx, &row, `SELECT id, name, plan_json, created_at, updated_at FROM plans WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return PlanRecord{}, ErrNotFound
	}
	if err != nil {
		return PlanRecord{}, err
	}
	return row.record()
}

func (db *SQLite) ListPlans(ctx context.Context) ([]PlanRecord, error) {
	var rows []planRow
	if err := db.conn.SelectContext(ctx, &rows, `SELECT id, name, plan_json, created_at, updated_at FROM plans ORDER BY name, id`); err != nil {
		return nil, err
	}
	out := make([]PlanRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", row.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (db *SQLite) DeletePlan(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE plan_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (db *SQLite) AddRun(ctx context.Context, run RunSummary) (RunSummary, error) {
	run = prepareRun(run, time.Now().UTC())
	stats, err := run.FinalStats.MarshalJSON()
	if err != nil {
		return RunSummary{}, err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return RunSummary{}, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.GetContext(ctx, &exists, `SELECT COUNT(1) FROM plans WHERE id = ?`, run.PlanID); err != nil {
		return RunSummary{}, err
	}
	if exists == 0 {
		return RunSummary{}, ErrNotFound
	}
	var dup int
	if err := tx.GetContext(ctx, &dup, `SELECT COUNT(1) FROM runs WHERE idempotency_key = ?`, run.IdempotencyKey); err != nil {
		return RunSummary{}, err
	}
	if dup > 0 {
		return RunSummary{}, ErrDuplicateIdempotency
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, plan_id, idempotency_key, ran_at, total_days, final_stats_json, final_gym, gym_changes, total_energy, total_cost, net)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.PlanID, run.IdempotencyKey, run.RanAt, run.TotalDays, string(stats), run.FinalGym, run.GymChanges, run.TotalEnergy,
		nullDecimalText(run.TotalCost), nullDecimalText(run.Net))
	if err != nil {
		return RunSummary{}, fmt.Errorf("insert run: %w", err)
	}
	return run, tx.Commit()
}

func (db *SQLite) ListRuns(ctx context.Context, planID string, limit int) ([]RunSummary, error) {
	if _, err := db.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	var rows []runRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT id, plan_id, idempotency_key, ran_at, total_days, final_stats_json, final_gym, gym_changes, total_energy, total_cost, net
		FROM runs
		WHERE plan_id = ?
		ORDER BY ran_at DESC, rowid DESC
		LIMIT ?
	`, planID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(rows))
	for _, row := range rows {
		run, err := row.summary()
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", row.ID, err)
		}
		out = append(out, run)
	}
	return out, nil
}

func (db *SQLite) Prices(ctx context.Context) ([]PriceEntry, error) {
	var rows []struct {
		ItemID    string    `db:"item_id"`
		Price     string    `db:"price"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	if err := db.conn.SelectContext(ctx, &rows, `SELECT item_id, price, updated_at FROM prices ORDER BY item_id`); err != nil {
		return nil, err
	}
	out := make([]PriceEntry, 0, len(rows))
	for _, row := range rows {
		p, err := decimal.NewFromString(strings.TrimSpace(row.Price))
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", row.ItemID, err)
		}
		out = append(out, PriceEntry{ItemID: row.ItemID, Price: p, UpdatedAt: row.UpdatedAt.UTC()})
	}
	return out, nil
}

func (db *SQLite) SetPrice(ctx context.Context, itemID string, price decimal.Decimal) (PriceEntry, error) {
	itemID, err := preparePrice(itemID, price)
	if err != nil {
		return PriceEntry{}, err
	}
	entry := PriceEntry{ItemID: itemID, Price: price, UpdatedAt: time.Now().UTC()}
	_, err = db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO prices (item_id, price, updated_at) VALUES (?, ?, ?)",
		entry.ItemID, entry.Price.String(), entry.UpdatedAt,
	)
	if err != nil {
		return PriceEntry{}, err
	}
	return entry, nil
}

package gym

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const planDateLayout = "2006-01-02"

// Plan is the file/API form of one comparison state.
type Plan struct {
	Name           string        `json:"name" yaml:"name"`
	TotalDays      int           `json:"total_days" yaml:"total_days"`
	StartDate      string        `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	InitialStats   StatVector    `json:"initial_stats" yaml:"initial_stats"`
	StartingGym    string        `json:"starting_gym,omitempty" yaml:"starting_gym,omitempty"`
	LockGym        bool          `json:"lock_gym,omitempty" yaml:"lock_gym,omitempty"`
	HappinessCurve string        `json:"happiness_curve,omitempty" yaml:"happiness_curve,omitempty"`
	Sections       []SectionPlan `json:"sections" yaml:"sections"`
}

type SectionPlan struct {
	StartDay        int              `json:"start_day,omitempty" yaml:"start_day,omitempty"`
	EndDay          int              `json:"end_day,omitempty" yaml:"end_day,omitempty"`
	Weights         StatVector       `json:"weights" yaml:"weights"`
	Perks           []PerkSource     `json:"perks,omitempty" yaml:"perks,omitempty"`
	BaseHappy       float64          `json:"base_happy" yaml:"base_happy"`
	Energy          EnergyPlan       `json:"energy" yaml:"energy"`
	Jumps           []JumpPlan       `json:"jumps,omitempty" yaml:"jumps,omitempty"`
	Benefit         *CompanyBenefit  `json:"benefit,omitempty" yaml:"benefit,omitempty"`
	LossRevive      *LossRevivePlan  `json:"loss_revive,omitempty" yaml:"loss_revive,omitempty"`
	DiabetesDay     *DiabetesDayPlan `json:"diabetes_day,omitempty" yaml:"diabetes_day,omitempty"`
	DriftPercent    float64          `json:"drift_percent,omitempty" yaml:"drift_percent,omitempty"`
	IgnorePerks     bool             `json:"ignore_perks,omitempty" yaml:"ignore_perks,omitempty"`
	BalanceAfterGym string           `json:"balance_after_gym,omitempty" yaml:"balance_after_gym,omitempty"`
}

type EnergyPlan struct {
	Mode        string  `json:"mode,omitempty" yaml:"mode,omitempty"`
	HoursPlayed float64 `json:"hours_played" yaml:"hours_played"`
	Stimulants  int     `json:"stimulants,omitempty" yaml:"stimulants,omitempty"`
	Refill      bool    `json:"refill,omitempty" yaml:"refill,omitempty"`
	Tier        string  `json:"tier,omitempty" yaml:"tier,omitempty"`
	Manual      float64 `json:"manual,omitempty" yaml:"manual,omitempty"`
}

type JumpPlan struct {
	Family       string      `json:"family" yaml:"family"`
	Disabled     bool        `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Every        int         `json:"every" yaml:"every"`
	Quantity     int         `json:"quantity" yaml:"quantity"`
	BonusPercent float64     `json:"bonus_percent,omitempty" yaml:"bonus_percent,omitempty"`
	Count        int         `json:"count,omitempty" yaml:"count,omitempty"`
	Until        *TargetPlan `json:"until,omitempty" yaml:"until,omitempty"`
	Effect       *JumpEffect `json:"effect,omitempty" yaml:"effect,omitempty"`
	ItemID       string      `json:"item_id,omitempty" yaml:"item_id,omitempty"`
}

type TargetPlan struct {
	Stat  string  `json:"stat" yaml:"stat"`
	Value float64 `json:"value" yaml:"value"`
}

type LossRevivePlan struct {
	PerSession    int     `json:"per_session" yaml:"per_session"`
	EnergyPerUnit float64 `json:"energy_per_unit" yaml:"energy_per_unit"`
	EveryDays     int     `json:"every_days" yaml:"every_days"`
	PricePerUnit  float64 `json:"price_per_unit" yaml:"price_per_unit"`
}

type DiabetesDayPlan struct {
	Jumps          int     `json:"jumps" yaml:"jumps"`
	HappyPerJump   float64 `json:"happy_per_jump" yaml:"happy_per_jump"`
	Coupon         bool    `json:"coupon,omitempty" yaml:"coupon,omitempty"`
	CouponEnergy   float64 `json:"coupon_energy,omitempty" yaml:"coupon_energy,omitempty"`
	Egg            bool    `json:"egg,omitempty" yaml:"egg,omitempty"`
	EggGainPercent float64 `json:"egg_gain_percent,omitempty" yaml:"egg_gain_percent,omitempty"`
}

func LoadPlan(path string) (Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return DecodePlan(raw, format)
}

func DecodePlan(raw []byte, format string) (Plan, error) {
	var p Plan
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Plan{}, fmt.Errorf("decode plan: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Plan{}, fmt.Errorf("decode plan: %w", err)
		}
	}
	return p, nil
}

func (p Plan) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(p)
}

// Config converts the plan into an engine config against catalog. A nil prices
// table disables cost accounting.
func (p Plan) Config(catalog Catalog, prices PriceTable) (SimulationConfig, error) {
	if catalog.IsZero() {
		catalog = DefaultCatalog()
	}
	curve, err := CurveByName(p.HappinessCurve)
	if err != nil {
		return SimulationConfig{}, configErr("happiness_curve", "%v", err)
	}
	cfg := SimulationConfig{
		Catalog:      catalog,
		Curve:        curve,
		InitialStats: p.InitialStats,
		LockGym:      p.LockGym,
		TotalDays:    p.TotalDays,
		Prices:       prices,
	}
	if p.StartDate != "" {
		d, err := time.Parse(planDateLayout, p.StartDate)
		if err != nil {
			return SimulationConfig{}, configErr("start_date", "want YYYY-MM-DD: %v", err)
		}
		cfg.StartDate = &d
	}
	if cfg.StartingGym, err = gymIndex(catalog, p.StartingGym, 0); err != nil {
		return SimulationConfig{}, configErr("starting_gym", "%v", err)
	}

	sections := p.Sections
	if len(sections) == 1 && sections[0].StartDay == 0 && sections[0].EndDay == 0 {
		sections = []SectionPlan{sections[0]}
		sections[0].StartDay, sections[0].EndDay = 1, p.TotalDays
	}
	for i, sp := range sections {
		sec, err := sp.section(i, catalog)
		if err != nil {
			return SimulationConfig{}, err
		}
		cfg.Sections = append(cfg.Sections, sec)
	}
	return cfg, nil
}

func gymIndex(catalog Catalog, ref string, fallback int) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fallback, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 0 || n >= catalog.TotalGyms() {
			return 0, fmt.Errorf("gym index %d outside catalog of %d gyms", n, catalog.TotalGyms())
		}
		return n, nil
	}
	i, ok := catalog.IndexOf(ref)
	if !ok {
		return 0, fmt.Errorf("unknown gym %q", ref)
	}
	return i, nil
}

func (sp SectionPlan) section(i int, catalog Catalog) (TrainingSection, error) {
	field := func(name string) string { return fmt.Sprintf("sections[%d].%s", i, name) }

	tier, ok := ParseTier(sp.Energy.Tier)
	if !ok {
		return TrainingSection{}, configErr(field("energy.tier"), "unknown tier %q", sp.Energy.Tier)
	}
	mode := EnergyFormula
	if strings.EqualFold(sp.Energy.Mode, string(EnergyManual)) {
		mode = EnergyManual
	} else if sp.Energy.Mode != "" && !strings.EqualFold(sp.Energy.Mode, string(EnergyFormula)) {
		return TrainingSection{}, configErr(field("energy.mode"), "unknown mode %q", sp.Energy.Mode)
	}

	sec := TrainingSection{
		StartDay:  sp.StartDay,
		EndDay:    sp.EndDay,
		Weights:   sp.Weights,
		Perks:     sp.Perks,
		BaseHappy: sp.BaseHappy,
		Energy: EnergyPolicy{
			Mode:         mode,
			HoursPlayed:  sp.Energy.HoursPlayed,
			Stimulants:   sp.Energy.Stimulants,
			Refill:       sp.Energy.Refill,
			Tier:         tier,
			ManualEnergy: sp.Energy.Manual,
		},
		DriftPercent:            sp.DriftPercent,
		IgnorePerksForSelection: sp.IgnorePerks,
	}

	balance, err := gymIndex(catalog, sp.BalanceAfterGym, catalog.TotalGyms())
	if err != nil {
		return TrainingSection{}, configErr(field("balance_after_gym"), "%v", err)
	}
	sec.BalanceAfterGym = balance

	sec.Benefit = NoopBenefit()
	if sp.Benefit != nil {
		b := *sp.Benefit
		if preset, ok := BenefitByName(b.Name); ok && b.UnlockSpeed == 0 && b.BonusEnergyPerDay == 0 && b.GymGainMultiplier == 0 {
			b = preset
		}
		sec.Benefit = b.normalized()
	}

	for j, jp := range sp.Jumps {
		jump, err := jp.jump()
		if err != nil {
			return TrainingSection{}, configErr(field(fmt.Sprintf("jumps[%d]", j)), "%v", err)
		}
		sec.Jumps = append(sec.Jumps, jump)
	}

	if lr := sp.LossRevive; lr != nil {
		if !finite(lr.PricePerUnit) {
			return TrainingSection{}, configErr(field("loss_revive.price_per_unit"), "must be finite")
		}
		sec.LossRevive = LossReviveConfig{
			Enabled:       true,
			PerSession:    lr.PerSession,
			EnergyPerUnit: lr.EnergyPerUnit,
			EveryDays:     lr.EveryDays,
			PricePerUnit:  decimal.NewFromFloat(lr.PricePerUnit),
		}
	}
	if dd := sp.DiabetesDay; dd != nil {
		sec.DiabetesDay = DiabetesDayConfig{
			Enabled:        true,
			Jumps:          dd.Jumps,
			HappyPerJump:   dd.HappyPerJump,
			Coupon:         dd.Coupon,
			CouponEnergy:   dd.CouponEnergy,
			Egg:            dd.Egg,
			EggGainPercent: dd.EggGainPercent,
		}
	}
	return sec, nil
}

func (jp JumpPlan) jump() (JumpConfig, error) {
	family, err := ParseJumpFamily(strings.ToLower(strings.TrimSpace(jp.Family)))
	if err != nil {
		return JumpConfig{}, err
	}
	out := JumpConfig{
		Family:       family,
		Enabled:      !jp.Disabled,
		EveryDays:    jp.Every,
		Quantity:     jp.Quantity,
		BonusPercent: jp.BonusPercent,
		Termination:  Indefinite(),
		ItemID:       jp.ItemID,
	}
	if jp.Effect != nil {
		out.Effect = *jp.Effect
	}
	switch {
	case jp.Count > 0 && jp.Until != nil:
		return JumpConfig{}, fmt.Errorf("count and until are mutually exclusive")
	case jp.Count > 0:
		out.Termination = AfterCount(jp.Count)
	case jp.Until != nil:
		stat, err := ParseStat(jp.Until.Stat)
		if err != nil {
			return JumpConfig{}, err
		}
		out.Termination = UntilStat(stat, jp.Until.Value)
	}
	return out, nil
}

package gym

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// SimulationConfig is built once per run and never mutated by Simulate.
type SimulationConfig struct {
	Catalog      Catalog
	Curve        HappinessCurve
	InitialStats StatVector
	StartingGym  int
	LockGym      bool
	Sections     []TrainingSection
	TotalDays    int
	StartDate    *time.Time
	Prices       PriceTable
}

type DailySnapshot struct {
	Day        int          `json:"day"`
	Date       *time.Time   `json:"date,omitempty"`
	Section    int          `json:"section"`
	Gym        int          `json:"gym"`
	Energy     float64      `json:"energy"`
	Happiness  float64      `json:"happiness"`
	Split      StatVector   `json:"split"`
	Multiplier StatVector   `json:"multiplier"`
	Jumps      []JumpFamily `json:"jumps,omitempty"`
	Stats      StatVector   `json:"stats"`
	Costs      *DayCosts    `json:"costs,omitempty"`
}

type SimulationResult struct {
	FinalStats   StatVector      `json:"final_stats"`
	FinalGym     int             `json:"final_gym"`
	GymChanges   []GymChange     `json:"gym_changes"`
	TotalEnergy  float64         `json:"total_energy"`
	EnergyByStat StatVector      `json:"energy_by_stat"`
	Snapshots    []DailySnapshot `json:"snapshots"`
	Costs        *CostLedger     `json:"costs,omitempty"`
}

// Validate reports the first configuration problem without running anything.
func (c SimulationConfig) Validate() error {
	if c.TotalDays < 1 || c.TotalDays > MaxDays {
		return configErr("total_days", "must be between 1 and %d, got %d", MaxDays, c.TotalDays)
	}
	if !c.InitialStats.finite() || c.InitialStats.min() < 0 {
		return configErr("initial_stats", "stats must be finite and >= 0")
	}
	catalog := c.Catalog
	if catalog.IsZero() {
		catalog = DefaultCatalog()
	}
	if c.StartingGym < 0 || c.StartingGym >= catalog.TotalGyms() {
		return configErr("starting_gym", "index %d outside catalog of %d gyms", c.StartingGym, catalog.TotalGyms())
	}
	if err := ValidateSections(c.Sections, c.TotalDays); err != nil {
		return err
	}
	for i, s := range c.Sections {
		if err := validateSection(i, s); err != nil {
			return err
		}
	}
	return nil
}

func (c SimulationConfig) dateFor(day int) *time.Time {
	if c.StartDate == nil {
		return nil
	}
	d := c.StartDate.AddDate(0, 0, day-1)
	return &d
}

// Simulate projects stats day by day. It is pure: identical configs produce identical results.
func Simulate(cfg SimulationConfig) (SimulationResult, error) {
	if err := cfg.Validate(); err != nil {
		return SimulationResult{}, err
	}
	catalog := cfg.Catalog
	if catalog.IsZero() {
		catalog = DefaultCatalog()
	}
	engine := GainEngine{Curve: cfg.Curve}
	tl := newTimeline(cfg.Sections)
	sched := newScheduler()
	prog := NewProgression(catalog, cfg.StartingGym, cfg.LockGym)

	var book *ledger
	if cfg.Prices != nil {
		book = newLedger(cfg.Prices)
	}

	stats := cfg.InitialStats
	var totalEnergy float64
	var energyByStat StatVector
	snaps := make([]DailySnapshot, 0, cfg.TotalDays)

	for day := 1; day <= cfg.TotalDays; day++ {
		idx, sec := tl.ConfigForDay(day)
		date := cfg.dateFor(day)
		benefit := sec.Benefit.normalized()

		boost := sched.apply(day, sec, stats, date)

		energy := DailyEnergy(sec.Energy, benefit.BonusEnergyPerDay) + boost.energyAdd - boost.reviveEnergy
		energy = math.Max(0, energy)
		happy := DailyHappiness(sec.BaseHappy, boost.happyAdd, boost.happyMult)

		gym := prog.Current()
		perks := sec.EffectivePerks()
		split := Allocate(AllocationInput{
			Energy:                  energy,
			Weights:                 sec.Weights,
			Perks:                   perks,
			DriftPercent:            sec.DriftPercent,
			IgnorePerksForSelection: sec.IgnorePerksForSelection,
			GymIndex:                prog.Index(),
			BalanceAfterGym:         sec.BalanceAfterGym,
			Dots:                    gym.Dots,
			Multiplier:              boost.multiplier,
		})

		var delta StatVector
		for _, s := range AllStats() {
			delta[s] = engine.GainForEnergy(split[s], gym, s, happy, perks, benefit, boost.multiplier[s])
		}
		stats = stats.Add(delta)
		spent := split.Sum()
		totalEnergy += spent
		energyByStat = energyByStat.Add(split)

		prog.Train(spent)
		prog.EndOfDay(day, stats, benefit)

		snap := DailySnapshot{
			Day:        day,
			Date:       date,
			Section:    idx,
			Gym:        gym.Ordinal,
			Energy:     energy,
			Happiness:  happy,
			Split:      split,
			Multiplier: boost.multiplier,
			Jumps:      boost.jumps,
			Stats:      stats,
		}
		if book != nil {
			snap.Costs = bookDay(book, sec, boost)
		}
		snaps = append(snaps, snap)
	}

	out := SimulationResult{
		FinalStats:   stats,
		FinalGym:     prog.Index(),
		GymChanges:   prog.Changes(),
		TotalEnergy:  totalEnergy,
		EnergyByStat: energyByStat,
		Snapshots:    snaps,
	}
	if book != nil {
		out.Costs = book.result()
	}
	return out, nil
}

func bookDay(book *ledger, sec TrainingSection, boost dayBoost) *DayCosts {
	spent := decimal.Zero
	if sec.Energy.Mode != EnergyManual {
		spent = spent.Add(book.charge(charge{category: CategoryStimulant, itemID: ItemStimulant, units: int64(max(sec.Energy.Stimulants, 0))}))
		if sec.Energy.Refill {
			spent = spent.Add(book.charge(charge{category: CategoryRefill, itemID: ItemRefill, units: 1}))
		}
	}
	for _, c := range boost.charges {
		spent = spent.Add(book.charge(c))
	}
	earned := book.earn(boost.reviveUnits, boost.revivePrice)
	return &DayCosts{Spent: spent, Earned: earned}
}

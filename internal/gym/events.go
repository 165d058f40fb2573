package gym

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type JumpFamily string

const (
	FamilyEDVD         JumpFamily = "edvd"
	FamilyCandy        JumpFamily = "candy"
	FamilyStackedCandy JumpFamily = "stacked_candy"
	FamilyEnergyDrink  JumpFamily = "energy_drink"
	FamilyRefillCoupon JumpFamily = "refill_coupon"
)

func JumpFamilies() []JumpFamily {
	return []JumpFamily{FamilyEDVD, FamilyCandy, FamilyStackedCandy, FamilyEnergyDrink, FamilyRefillCoupon}
}

func ParseJumpFamily(v string) (JumpFamily, error) {
	for _, f := range JumpFamilies() {
		if string(f) == v {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown jump family %q", v)
}

type TerminationKind string

const (
	TerminateNever      TerminationKind = "indefinite"
	TerminateAfterCount TerminationKind = "count"
	TerminateAtStat     TerminationKind = "stat_target"
)

// JumpTermination is a tagged union: Indefinite, Count(n) or StatTarget(stat, value).
type JumpTermination struct {
	Kind   TerminationKind `json:"kind"`
	Count  int             `json:"count,omitempty"`
	Stat   Stat            `json:"stat"`
	Target float64         `json:"target,omitempty"`
}

func Indefinite() JumpTermination {
	return JumpTermination{Kind: TerminateNever}
}

func AfterCount(n int) JumpTermination {
	return JumpTermination{Kind: TerminateAfterCount, Count: n}
}

func UntilStat(s Stat, target float64) JumpTermination {
	return JumpTermination{Kind: TerminateAtStat, Stat: s, Target: target}
}

type JumpEffect struct {
	HappyPerUnit    float64    `json:"happy_per_unit" yaml:"happy_per_unit"`
	EnergyPerUnit   float64    `json:"energy_per_unit" yaml:"energy_per_unit"`
	HappyMultiplier float64    `json:"happy_multiplier" yaml:"happy_multiplier"`
	GainMultiplier  StatVector `json:"gain_multiplier" yaml:"gain_multiplier"`
}

func DefaultJumpEffect(f JumpFamily) JumpEffect {
	switch f {
	case FamilyEDVD:
		return JumpEffect{HappyPerUnit: 2_500, HappyMultiplier: 2}
	case FamilyCandy:
		return JumpEffect{HappyPerUnit: 50}
	case FamilyStackedCandy:
		return JumpEffect{HappyPerUnit: 50, HappyMultiplier: 2}
	case FamilyEnergyDrink:
		return JumpEffect{EnergyPerUnit: 25}
	case FamilyRefillCoupon:
		return JumpEffect{EnergyPerUnit: TierSubscriber.BarSize()}
	default:
		return JumpEffect{}
	}
}

func (e JumpEffect) normalized() JumpEffect {
	if e.HappyMultiplier == 0 {
		e.HappyMultiplier = 1
	}
	e.GainMultiplier = e.GainMultiplier.neutral()
	return e
}

type JumpConfig struct {
	Family       JumpFamily      `json:"family"`
	Enabled      bool            `json:"enabled"`
	EveryDays    int             `json:"every_days"`
	Quantity     int             `json:"quantity"`
	BonusPercent float64         `json:"bonus_percent"`
	Termination  JumpTermination `json:"termination"`
	Effect       JumpEffect      `json:"effect"`
	ItemID       string          `json:"item_id"`
}

func (j JumpConfig) effect() JumpEffect {
	if j.Effect == (JumpEffect{}) {
		return DefaultJumpEffect(j.Family).normalized()
	}
	return j.Effect.normalized()
}

func (j JumpConfig) itemID() string {
	if j.ItemID != "" {
		return j.ItemID
	}
	return string(j.Family)
}

type LossReviveConfig struct {
	Enabled       bool            `json:"enabled"`
	PerSession    int             `json:"per_session"`
	EnergyPerUnit float64         `json:"energy_per_unit"`
	EveryDays     int             `json:"every_days"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
}

type DiabetesDayConfig struct {
	Enabled        bool    `json:"enabled"`
	Jumps          int     `json:"jumps"`
	HappyPerJump   float64 `json:"happy_per_jump"`
	Coupon         bool    `json:"coupon"`
	CouponEnergy   float64 `json:"coupon_energy"`
	Egg            bool    `json:"egg"`
	EggGainPercent float64 `json:"egg_gain_percent"`
}

const diabetesDayWindow = 3

// diabetesDayOffset returns the position of date inside the yearly Nov 13-15 window, or -1.
func diabetesDayOffset(date time.Time) int {
	if date.Month() != time.November {
		return -1
	}
	d := date.Day() - 13
	if d < 0 || d >= diabetesDayWindow {
		return -1
	}
	return d
}

type dayBoost struct {
	happyAdd     float64
	happyMult    float64
	energyAdd    float64
	reviveEnergy float64
	reviveUnits  int64
	revivePrice  decimal.Decimal
	multiplier   StatVector
	jumps        []JumpFamily
	charges      []charge
}

type jumpState struct {
	remaining int
	disabled  bool
}

// scheduler owns the per-run termination state of every jump family. A family
// that terminates stays off for the rest of the run, across section boundaries.
type scheduler struct {
	states map[JumpFamily]*jumpState
}

func newScheduler() *scheduler {
	return &scheduler{states: make(map[JumpFamily]*jumpState)}
}

func (s *scheduler) state(j JumpConfig) *jumpState {
	st, ok := s.states[j.Family]
	if !ok {
		st = &jumpState{}
		if j.Termination.Kind == TerminateAfterCount {
			st.remaining = j.Termination.Count
		}
		s.states[j.Family] = st
	}
	return st
}

func onSchedule(day, every int) bool {
	return every > 0 && (day-1)%every == 0
}

func (s *scheduler) apply(day int, sec TrainingSection, stats StatVector, date *time.Time) dayBoost {
	boost := dayBoost{happyMult: 1, multiplier: Uniform(1)}

	for _, j := range sec.Jumps {
		if !j.Enabled || !onSchedule(day, j.EveryDays) {
			continue
		}
		st := s.state(j)
		if st.disabled {
			continue
		}
		switch j.Termination.Kind {
		case TerminateAtStat:
			if stats[j.Termination.Stat] >= j.Termination.Target {
				st.disabled = true
				continue
			}
		case TerminateAfterCount:
			if st.remaining <= 0 {
				st.disabled = true
				continue
			}
		}

		eff := j.effect()
		scale := float64(j.Quantity) * (1 + j.BonusPercent/100)
		boost.happyAdd += eff.HappyPerUnit * scale
		boost.energyAdd += eff.EnergyPerUnit * scale
		boost.happyMult *= eff.HappyMultiplier
		for i := range boost.multiplier {
			boost.multiplier[i] *= eff.GainMultiplier[i]
		}
		boost.jumps = append(boost.jumps, j.Family)
		boost.charges = append(boost.charges, charge{category: string(j.Family), itemID: j.itemID(), units: int64(j.Quantity)})

		if j.Termination.Kind == TerminateAfterCount {
			st.remaining--
			if st.remaining <= 0 {
				st.disabled = true
			}
		}
	}

	if lr := sec.LossRevive; lr.Enabled && onSchedule(day, lr.EveryDays) {
		units := int64(max(lr.PerSession, 0))
		boost.reviveUnits = units
		boost.reviveEnergy = float64(units) * lr.EnergyPerUnit
		boost.revivePrice = lr.PricePerUnit
	}

	if dd := sec.DiabetesDay; dd.Enabled && date != nil {
		if off := diabetesDayOffset(*date); off >= 0 && off < min(dd.Jumps, diabetesDayWindow) {
			boost.happyAdd += dd.HappyPerJump
			if dd.Coupon {
				boost.energyAdd += dd.CouponEnergy
				boost.charges = append(boost.charges, charge{category: CategoryDiabetesDay, itemID: ItemRefillCoupon, units: 1})
			}
			if dd.Egg {
				boost.multiplier = boost.multiplier.Scale(1 + dd.EggGainPercent/100)
				boost.charges = append(boost.charges, charge{category: CategoryDiabetesDay, itemID: ItemEgg, units: 1})
			}
		}
	}
	return boost
}

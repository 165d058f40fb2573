package gym

import (
	"math"
	"strings"
)

type EnergyMode string

const (
	EnergyFormula EnergyMode = "formula"
	EnergyManual  EnergyMode = "manual"
)

type Tier string

const (
	TierStandard   Tier = "standard"
	TierSubscriber Tier = "subscriber"
)

func (t Tier) BarSize() float64 {
	if t == TierSubscriber {
		return 150
	}
	return 100
}

func (t Tier) RegenPerHour() float64 {
	if t == TierSubscriber {
		return 30
	}
	return 20
}

func ParseTier(v string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "standard":
		return TierStandard, true
	case "subscriber", "donator":
		return TierSubscriber, true
	default:
		return "", false
	}
}

type EnergyPolicy struct {
	Mode         EnergyMode `json:"mode"`
	HoursPlayed  float64    `json:"hours_played"`
	Stimulants   int        `json:"stimulants"`
	Refill       bool       `json:"refill"`
	Tier         Tier       `json:"tier"`
	ManualEnergy float64    `json:"manual_energy"`
}

// DailyEnergy is the energy available for one day before events.
// Offline regeneration is capped at the bar; regeneration while playing is spent as it arrives.
func DailyEnergy(p EnergyPolicy, companyBonus float64) float64 {
	if p.Mode == EnergyManual {
		return math.Max(0, p.ManualEnergy)
	}
	hours := math.Min(math.Max(p.HoursPlayed, 0), HoursPerDay)
	stims := p.Stimulants
	if stims < 0 {
		stims = 0
	}
	bar := p.Tier.BarSize()
	regen := p.Tier.RegenPerHour()

	total := 0.0
	if hours > 0 {
		offline := math.Min(bar, regen*(HoursPerDay-hours))
		total += offline + regen*hours
	}
	if p.Refill {
		total += bar
	}
	total += float64(stims) * StimulantEnergy
	total += math.Max(0, companyBonus)
	return total
}

// DailyHappiness raises base happiness by the day's uplifts; it never lowers it.
func DailyHappiness(base, add, mult float64) float64 {
	if mult <= 0 {
		mult = 1
	}
	h := (base + add) * mult
	if h < base {
		h = base
	}
	return math.Min(h, MaxHappy)
}

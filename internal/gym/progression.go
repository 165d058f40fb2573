package gym

import "strings"

type GymChange struct {
	Day  int    `json:"day"`
	From int    `json:"from"`
	To   int    `json:"to"`
	Name string `json:"name"`
}

// Progression tracks the active gym. The index only moves forward.
type Progression struct {
	catalog     Catalog
	index       int
	locked      bool
	energyInGym float64
	changes     []GymChange
}

func NewProgression(c Catalog, start int, locked bool) *Progression {
	return &Progression{
		catalog: c,
		index:   c.Clamp(start),
		locked:  locked,
	}
}

func (p *Progression) Index() int {
	return p.index
}

func (p *Progression) Current() Gym {
	return p.catalog.GymAt(p.index)
}

func (p *Progression) Changes() []GymChange {
	out := make([]GymChange, len(p.changes))
	copy(out, p.changes)
	return out
}

func (p *Progression) Train(energy float64) {
	if energy > 0 {
		p.energyInGym += energy
	}
}

// EndOfDay advances at most one gym and reports whether it did.
func (p *Progression) EndOfDay(day int, stats StatVector, benefit CompanyBenefit) bool {
	if p.locked || p.index >= p.catalog.TotalGyms()-1 {
		return false
	}
	benefit = benefit.normalized()
	next := p.catalog.GymAt(p.index + 1)
	need, ok := unlockSatisfied(next.Unlock, p.energyInGym, stats, benefit)
	if !ok {
		return false
	}
	p.energyInGym -= need
	if p.energyInGym < 0 {
		p.energyInGym = 0
	}
	p.changes = append(p.changes, GymChange{Day: day, From: p.index, To: p.index + 1, Name: next.Name})
	p.index++
	return true
}

// unlockSatisfied returns the energy consumed by the unlock and whether every set
// requirement holds after scaling by the benefit's unlock speed.
func unlockSatisfied(rule UnlockRule, energySpent float64, stats StatVector, benefit CompanyBenefit) (float64, bool) {
	speed := benefit.UnlockSpeed
	if speed <= 0 {
		speed = 1
	}
	if rule.RequiresBenefit != "" && !strings.EqualFold(rule.RequiresBenefit, benefit.Name) {
		return 0, false
	}
	need := rule.EnergyToUnlock / speed
	if energySpent < need {
		return 0, false
	}
	if stats.Sum() < rule.MinTotalStats/speed {
		return 0, false
	}
	for _, s := range AllStats() {
		if stats[s] < rule.MinStats[s]/speed {
			return 0, false
		}
	}
	return need, true
}

package gym

import "strings"

type PerkSource struct {
	Name    string     `json:"name" yaml:"name"`
	Percent StatVector `json:"percent" yaml:"percent"`
}

// CombinePerks composes independent percentage bonuses multiplicatively:
// +5% and +2% give +7.1%, not +7%.
func CombinePerks(sources ...StatVector) StatVector {
	m := Uniform(1)
	for _, src := range sources {
		for i := range m {
			m[i] *= 1 + src[i]/100
		}
	}
	for i := range m {
		m[i] = (m[i] - 1) * 100
	}
	return m
}

func perkMultiplier(perks StatVector, s Stat) float64 {
	return 1 + perks[s]/100
}

type CompanyBenefit struct {
	Name              string  `json:"name" yaml:"name"`
	UnlockSpeed       float64 `json:"unlock_speed" yaml:"unlock_speed"`
	BonusEnergyPerDay float64 `json:"bonus_energy_per_day" yaml:"bonus_energy_per_day"`
	GymGainMultiplier float64 `json:"gym_gain_multiplier" yaml:"gym_gain_multiplier"`
}

var benefitPresets = []CompanyBenefit{
	{Name: "none", UnlockSpeed: 1, GymGainMultiplier: 1},
	{Name: "fitness_center_3", UnlockSpeed: 1, GymGainMultiplier: 1.03},
	{Name: "fitness_center_7", UnlockSpeed: 1.3, GymGainMultiplier: 1.03},
	{Name: "fitness_center_10", UnlockSpeed: 1.3, BonusEnergyPerDay: 50, GymGainMultiplier: 1.03},
	{Name: "sports_shop_5", UnlockSpeed: 1, BonusEnergyPerDay: 50, GymGainMultiplier: 1},
}

// NoopBenefit is the neutral benefit used when a section names none.
func NoopBenefit() CompanyBenefit {
	return benefitPresets[0]
}

func Benefits() []CompanyBenefit {
	out := make([]CompanyBenefit, len(benefitPresets))
	copy(out, benefitPresets)
	return out
}

func BenefitByName(name string) (CompanyBenefit, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return NoopBenefit(), true
	}
	for _, b := range benefitPresets {
		if b.Name == key {
			return b, true
		}
	}
	return CompanyBenefit{}, false
}

func (b CompanyBenefit) normalized() CompanyBenefit {
	if b.Name == "" {
		b.Name = "none"
	}
	if b.UnlockSpeed == 0 {
		b.UnlockSpeed = 1
	}
	if b.GymGainMultiplier == 0 {
		b.GymGainMultiplier = 1
	}
	return b
}

type GainEngine struct {
	Curve HappinessCurve
}

func (e GainEngine) curve() HappinessCurve {
	if e.Curve == nil {
		return DefaultCurve()
	}
	return e.Curve
}

// GainForEnergy returns the stat delta for spending energy on one stat.
func (e GainEngine) GainForEnergy(energy float64, g Gym, s Stat, happy float64, perks StatVector, benefit CompanyBenefit, temp float64) float64 {
	if energy <= 0 {
		return 0
	}
	benefit = benefit.normalized()
	return energy *
		g.Dots[s] *
		e.curve().Factor(happy) *
		perkMultiplier(perks, s) *
		benefit.GymGainMultiplier *
		temp
}

package gym

import (
	"fmt"
	"math"
	"sort"
)

type TrainingSection struct {
	StartDay                int               `json:"start_day"`
	EndDay                  int               `json:"end_day"`
	Weights                 StatVector        `json:"weights"`
	Perks                   []PerkSource      `json:"perks"`
	BaseHappy               float64           `json:"base_happy"`
	Energy                  EnergyPolicy      `json:"energy"`
	Jumps                   []JumpConfig      `json:"jumps"`
	Benefit                 CompanyBenefit    `json:"benefit"`
	LossRevive              LossReviveConfig  `json:"loss_revive"`
	DiabetesDay             DiabetesDayConfig `json:"diabetes_day"`
	DriftPercent            float64           `json:"drift_percent"`
	IgnorePerksForSelection bool              `json:"ignore_perks_for_selection"`
	BalanceAfterGym         int               `json:"balance_after_gym"`
}

func (s TrainingSection) Days() int {
	return s.EndDay - s.StartDay + 1
}

func (s TrainingSection) EffectivePerks() StatVector {
	sources := make([]StatVector, 0, len(s.Perks))
	for _, p := range s.Perks {
		sources = append(sources, p.Percent)
	}
	return CombinePerks(sources...)
}

// ValidateSections checks that sections are ordered, contiguous, non-overlapping and
// span exactly [1, totalDays].
func ValidateSections(sections []TrainingSection, totalDays int) error {
	if len(sections) == 0 {
		return &SectionCoverageError{Start: 1, End: totalDays, Reason: "no sections configured"}
	}
	for _, s := range sections {
		if s.EndDay < s.StartDay {
			return &SectionCoverageError{Start: s.StartDay, End: s.EndDay, Reason: "section ends before it starts"}
		}
	}
	first := sections[0]
	if first.StartDay < 1 {
		return &SectionCoverageError{Start: first.StartDay, End: min(first.EndDay, 0), Reason: "section starts before day 1"}
	}
	if first.StartDay > 1 {
		return &SectionCoverageError{Start: 1, End: first.StartDay - 1, Reason: "days not covered by any section"}
	}
	for i := 1; i < len(sections); i++ {
		prev, cur := sections[i-1], sections[i]
		switch {
		case cur.StartDay > prev.EndDay+1:
			return &SectionCoverageError{Start: prev.EndDay + 1, End: cur.StartDay - 1, Reason: "days not covered by any section"}
		case cur.StartDay <= prev.EndDay:
			return &SectionCoverageError{Start: cur.StartDay, End: min(prev.EndDay, cur.EndDay), Reason: "sections overlap"}
		}
	}
	last := sections[len(sections)-1]
	if last.EndDay < totalDays {
		return &SectionCoverageError{Start: last.EndDay + 1, End: totalDays, Reason: "days not covered by any section"}
	}
	if last.EndDay > totalDays {
		return &SectionCoverageError{Start: totalDays + 1, End: last.EndDay, Reason: "section extends past the last simulated day"}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// nonNegative reports whether every value is a finite number >= 0.
func nonNegative(xs ...float64) bool {
	for _, x := range xs {
		if !finite(x) || x < 0 {
			return false
		}
	}
	return true
}

func validateSection(i int, s TrainingSection) error {
	field := func(name string) string { return fmt.Sprintf("sections[%d].%s", i, name) }

	if !s.Weights.finite() || s.Weights.min() < 0 {
		return configErr(field("weights"), "weights must be finite and >= 0")
	}
	for _, p := range s.Perks {
		if !p.Percent.finite() || p.Percent.min() <= -100 {
			return configErr(field("perks"), "perk %q must be finite and > -100%%", p.Name)
		}
	}
	if !nonNegative(s.BaseHappy) || s.BaseHappy > MaxHappy {
		return configErr(field("base_happy"), "must be between 0 and %.0f", MaxHappy)
	}
	switch s.Energy.Mode {
	case EnergyFormula, "":
		if !finite(s.Energy.HoursPlayed) {
			return configErr(field("energy.hours_played"), "must be finite")
		}
	case EnergyManual:
		if !nonNegative(s.Energy.ManualEnergy) {
			return configErr(field("energy.manual_energy"), "must be finite and >= 0")
		}
	default:
		return configErr(field("energy.mode"), "unknown mode %q", s.Energy.Mode)
	}
	if !nonNegative(s.DriftPercent) || s.DriftPercent > 100 {
		return configErr(field("drift_percent"), "must be between 0 and 100")
	}
	b := s.Benefit
	if !nonNegative(b.UnlockSpeed, b.BonusEnergyPerDay, b.GymGainMultiplier) {
		return configErr(field("benefit"), "benefit %q values must be finite and >= 0", b.Name)
	}
	seen := make(map[JumpFamily]int, len(s.Jumps))
	for j, jump := range s.Jumps {
		jf := func(name string) string { return field(fmt.Sprintf("jumps[%d].%s", j, name)) }
		if prev, dup := seen[jump.Family]; dup {
			return configErr(field(fmt.Sprintf("jumps[%d]", j)), "family %q already configured at jumps[%d]", jump.Family, prev)
		}
		seen[jump.Family] = j
		if !jump.Enabled {
			continue
		}
		if jump.EveryDays < 1 {
			return configErr(jf("every_days"), "must be >= 1")
		}
		if jump.Quantity < 0 {
			return configErr(jf("quantity"), "must be >= 0")
		}
		if !nonNegative(jump.BonusPercent) {
			return configErr(jf("bonus_percent"), "must be finite and >= 0")
		}
		switch jump.Termination.Kind {
		case "", TerminateNever:
		case TerminateAfterCount:
			if jump.Termination.Count < 1 {
				return configErr(jf("termination.count"), "must be >= 1")
			}
		case TerminateAtStat:
			if jump.Termination.Stat < 0 || int(jump.Termination.Stat) >= NumStats {
				return configErr(jf("termination.stat"), "unknown stat")
			}
			if !finite(jump.Termination.Target) {
				return configErr(jf("termination.target"), "must be finite")
			}
		default:
			return configErr(jf("termination.kind"), "unknown kind %q", jump.Termination.Kind)
		}
		e := jump.Effect
		if !nonNegative(e.HappyPerUnit, e.EnergyPerUnit, e.HappyMultiplier) || !e.GainMultiplier.finite() || e.GainMultiplier.min() < 0 {
			return configErr(jf("effect"), "effect values must be finite and >= 0")
		}
	}
	if lr := s.LossRevive; lr.Enabled {
		if lr.EveryDays < 1 {
			return configErr(field("loss_revive.every_days"), "must be >= 1")
		}
		if lr.PerSession < 0 || !nonNegative(lr.EnergyPerUnit) || lr.PricePerUnit.IsNegative() {
			return configErr(field("loss_revive"), "values must be finite and >= 0")
		}
	}
	if dd := s.DiabetesDay; dd.Enabled {
		if dd.Jumps < 0 || !nonNegative(dd.HappyPerJump, dd.CouponEnergy, dd.EggGainPercent) {
			return configErr(field("diabetes_day"), "values must be finite and >= 0")
		}
	}
	return nil
}

type timeline struct {
	sections []TrainingSection
}

func newTimeline(sections []TrainingSection) timeline {
	return timeline{sections: sections}
}

// ConfigForDay returns the index and section covering day. Sections must already be validated.
func (t timeline) ConfigForDay(day int) (int, TrainingSection) {
	i := sort.Search(len(t.sections), func(i int) bool { return t.sections[i].EndDay >= day })
	if i == len(t.sections) {
		i = len(t.sections) - 1
	}
	return i, t.sections[i]
}

package gym

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(start, end int) TrainingSection {
	return TrainingSection{StartDay: start, EndDay: end, Weights: Uniform(1)}
}

func TestValidateSections(t *testing.T) {
	tests := []struct {
		name      string
		sections  []TrainingSection
		total     int
		wantStart int
		wantEnd   int
	}{
		{name: "gap at day 50", sections: []TrainingSection{span(1, 49), span(51, 100)}, total: 100, wantStart: 50, wantEnd: 50},
		{name: "wide gap", sections: []TrainingSection{span(1, 10), span(21, 100)}, total: 100, wantStart: 11, wantEnd: 20},
		{name: "overlap", sections: []TrainingSection{span(1, 60), span(50, 100)}, total: 100, wantStart: 50, wantEnd: 60},
		{name: "late start", sections: []TrainingSection{span(5, 100)}, total: 100, wantStart: 1, wantEnd: 4},
		{name: "short end", sections: []TrainingSection{span(1, 90)}, total: 100, wantStart: 91, wantEnd: 100},
		{name: "past horizon", sections: []TrainingSection{span(1, 120)}, total: 100, wantStart: 101, wantEnd: 120},
		{name: "inverted", sections: []TrainingSection{span(1, 50), span(80, 51)}, total: 100, wantStart: 80, wantEnd: 51},
		{name: "empty", sections: nil, total: 30, wantStart: 1, wantEnd: 30},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSections(tc.sections, tc.total)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSectionCoverage))
			var cov *SectionCoverageError
			require.True(t, errors.As(err, &cov))
			assert.Equal(t, tc.wantStart, cov.Start)
			assert.Equal(t, tc.wantEnd, cov.End)
		})
	}
}

func TestValidateSectionsAccepts(t *testing.T) {
	require.NoError(t, ValidateSections([]TrainingSection{span(1, 100)}, 100))
	require.NoError(t, ValidateSections([]TrainingSection{span(1, 1), span(2, 50), span(51, 100)}, 100))
}

func TestConfigForDay(t *testing.T) {
	tl := newTimeline([]TrainingSection{span(1, 10), span(11, 11), span(12, 40)})
	cases := map[int]int{1: 0, 10: 0, 11: 1, 12: 2, 40: 2}
	for day, want := range cases {
		got, sec := tl.ConfigForDay(day)
		assert.Equal(t, want, got, "day %d", day)
		assert.True(t, sec.StartDay <= day && day <= sec.EndDay, "day %d outside section", day)
	}
}

func TestSimulateRejectsGapBeforeRunning(t *testing.T) {
	cfg := SimulationConfig{
		InitialStats: Uniform(10),
		TotalDays:    100,
		Sections:     []TrainingSection{span(1, 49), span(51, 100)},
	}
	res, err := Simulate(cfg)
	require.ErrorIs(t, err, ErrSectionCoverage)
	assert.Empty(t, res.Snapshots)
	assert.Equal(t, "sections day 50: days not covered by any section", err.Error())
}

func TestValidateSectionRejectsNaN(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		mutate func(*TrainingSection)
		field  string
	}{
		{"hours played", func(s *TrainingSection) { s.Energy = EnergyPolicy{HoursPlayed: nan} }, "sections[0].energy.hours_played"},
		{"manual energy", func(s *TrainingSection) { s.Energy.ManualEnergy = math.Inf(1) }, "sections[0].energy.manual_energy"},
		{"drift", func(s *TrainingSection) { s.DriftPercent = nan }, "sections[0].drift_percent"},
		{"benefit multiplier", func(s *TrainingSection) { s.Benefit.GymGainMultiplier = nan }, "sections[0].benefit"},
		{"benefit energy", func(s *TrainingSection) { s.Benefit.BonusEnergyPerDay = nan }, "sections[0].benefit"},
		{"jump happy", func(s *TrainingSection) {
			s.Jumps = []JumpConfig{{Family: FamilyEDVD, Enabled: true, EveryDays: 1, Quantity: 1, Effect: JumpEffect{HappyPerUnit: nan}}}
		}, "sections[0].jumps[0].effect"},
		{"jump gain multiplier", func(s *TrainingSection) {
			s.Jumps = []JumpConfig{{Family: FamilyEDVD, Enabled: true, EveryDays: 1, Quantity: 1, Effect: JumpEffect{GainMultiplier: StatVector{1, nan, 1, 1}}}}
		}, "sections[0].jumps[0].effect"},
		{"jump bonus", func(s *TrainingSection) {
			s.Jumps = []JumpConfig{{Family: FamilyEDVD, Enabled: true, EveryDays: 1, Quantity: 1, BonusPercent: nan}}
		}, "sections[0].jumps[0].bonus_percent"},
		{"revive energy", func(s *TrainingSection) {
			s.LossRevive = LossReviveConfig{Enabled: true, EveryDays: 1, EnergyPerUnit: nan}
		}, "sections[0].loss_revive"},
		{"diabetes day", func(s *TrainingSection) {
			s.DiabetesDay = DiabetesDayConfig{Enabled: true, Jumps: 3, HappyPerJump: nan}
		}, "sections[0].diabetes_day"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sec := TrainingSection{
				StartDay: 1, EndDay: 10, Weights: Uniform(1),
				Energy:  EnergyPolicy{Mode: EnergyManual, ManualEnergy: 100},
				Benefit: NoopBenefit(),
			}
			tc.mutate(&sec)
			var res SimulationResult
			var err error
			require.NotPanics(t, func() {
				res, err = Simulate(SimulationConfig{InitialStats: Uniform(10), TotalDays: 10, Sections: []TrainingSection{sec}})
			})
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
			assert.Empty(t, res.Snapshots)
		})
	}
}

package gym

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `
name: drift-then-balance
total_days: 60
start_date: "2026-11-01"
initial_stats: 1000
starting_gym: Average Joes
sections:
  - start_day: 1
    end_day: 30
    weights: {strength: 2, speed: 1, defense: 1, dexterity: 1}
    perks:
      - name: faction
        percent: {speed: 10}
    base_happy: 5000
    drift_percent: 50
    balance_after_gym: Global Gym
    energy: {hours_played: 12, tier: subscriber, stimulants: 1}
    benefit: {name: fitness_center_10}
    jumps:
      - family: edvd
        every: 7
        quantity: 3
        count: 2
      - family: candy
        every: 1
        quantity: 10
        until: {stat: str, value: 1500}
  - start_day: 31
    end_day: 60
    weights: 1
    base_happy: 5000
    energy: {mode: manual, manual: 750}
    loss_revive: {per_session: 10, energy_per_unit: 25, every_days: 2, price_per_unit: 5000}
    diabetes_day: {jumps: 3, happy_per_jump: 2000, egg: true, egg_gain_percent: 20}
`

func TestDecodePlanYAML(t *testing.T) {
	p, err := DecodePlan([]byte(samplePlan), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "drift-then-balance", p.Name)
	assert.Equal(t, Uniform(1000), p.InitialStats)
	require.Len(t, p.Sections, 2)
	assert.Equal(t, StatVector{2, 1, 1, 1}, p.Sections[0].Weights)
	assert.Equal(t, Uniform(1), p.Sections[1].Weights)

	cfg, err := p.Config(Catalog{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.StartingGym)
	require.NotNil(t, cfg.StartDate)
	assert.Equal(t, "2026-11-01", cfg.StartDate.Format(planDateLayout))

	first := cfg.Sections[0]
	assert.Equal(t, 7, first.BalanceAfterGym)
	assert.Equal(t, TierSubscriber, first.Energy.Tier)
	assert.Equal(t, 1.3, first.Benefit.UnlockSpeed)
	assert.Equal(t, 50.0, first.Benefit.BonusEnergyPerDay)
	require.Len(t, first.Jumps, 2)
	assert.Equal(t, AfterCount(2), first.Jumps[0].Termination)
	assert.Equal(t, UntilStat(Strength, 1500), first.Jumps[1].Termination)
	assert.True(t, first.Jumps[1].Enabled)

	second := cfg.Sections[1]
	assert.Equal(t, EnergyManual, second.Energy.Mode)
	assert.Equal(t, DefaultCatalog().TotalGyms(), second.BalanceAfterGym)
	assert.Equal(t, "none", second.Benefit.Name)
	assert.True(t, second.LossRevive.Enabled)
	assert.Equal(t, "5000", second.LossRevive.PricePerUnit.String())
	assert.True(t, second.DiabetesDay.Enabled)

	res, err := Simulate(cfg)
	require.NoError(t, err)
	assert.Len(t, res.Snapshots, 60)
	assert.Nil(t, res.Costs)
}

func TestDecodePlanRejectsUnknownFields(t *testing.T) {
	_, err := DecodePlan([]byte("name: x\ntotal_dayz: 10\n"), "yaml")
	assert.Error(t, err)
	_, err = DecodePlan([]byte(`{"name":"x","bogus":1}`), "json")
	assert.Error(t, err)
}

func TestPlanSingleSectionFillsHorizon(t *testing.T) {
	p := Plan{TotalDays: 45, Sections: []SectionPlan{{Weights: Uniform(1), Energy: EnergyPlan{Mode: "manual", Manual: 100}}}}
	cfg, err := p.Config(DefaultCatalog(), nil)
	require.NoError(t, err)
	require.Len(t, cfg.Sections, 1)
	assert.Equal(t, 1, cfg.Sections[0].StartDay)
	assert.Equal(t, 45, cfg.Sections[0].EndDay)
}

func TestPlanConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		plan  Plan
		field string
	}{
		{name: "bad date", plan: Plan{TotalDays: 10, StartDate: "11/01/2026"}, field: "start_date"},
		{name: "bad curve", plan: Plan{TotalDays: 10, HappinessCurve: "cubic"}, field: "happiness_curve"},
		{name: "unknown gym", plan: Plan{TotalDays: 10, StartingGym: "Nowhere"}, field: "starting_gym"},
		{name: "gym index past catalog", plan: Plan{TotalDays: 10, StartingGym: "99"}, field: "starting_gym"},
		{name: "negative gym index", plan: Plan{TotalDays: 10, StartingGym: "-1"}, field: "starting_gym"},
		{name: "balance gym past catalog", plan: Plan{TotalDays: 10, Sections: []SectionPlan{{BalanceAfterGym: "99"}}}, field: "sections[0].balance_after_gym"},
		{name: "bad tier", plan: Plan{TotalDays: 10, Sections: []SectionPlan{{Energy: EnergyPlan{Tier: "gold"}}}}, field: "sections[0].energy.tier"},
		{name: "bad mode", plan: Plan{TotalDays: 10, Sections: []SectionPlan{{Energy: EnergyPlan{Mode: "auto"}}}}, field: "sections[0].energy.mode"},
		{
			name:  "count and until",
			plan:  Plan{TotalDays: 10, Sections: []SectionPlan{{Jumps: []JumpPlan{{Family: "edvd", Every: 1, Count: 2, Until: &TargetPlan{Stat: "speed", Value: 1}}}}}},
			field: "sections[0].jumps[0]",
		},
		{
			name:  "unknown family",
			plan:  Plan{TotalDays: 10, Sections: []SectionPlan{{Jumps: []JumpPlan{{Family: "pizza", Every: 1}}}}},
			field: "sections[0].jumps[0]",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.plan.Config(DefaultCatalog(), nil)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestLoadPlanByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name":"j","total_days":5,"initial_stats":{"strength":1,"speed":2,"defense":3,"dexterity":4},"sections":[]}`), 0o644))
	p, err := LoadPlan(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, StatVector{1, 2, 3, 4}, p.InitialStats)

	yamlPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(samplePlan), 0o644))
	p, err = LoadPlan(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 60, p.TotalDays)

	out, err := p.EncodeYAML()
	require.NoError(t, err)
	again, err := DecodePlan(out, "yaml")
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestDecodePlanStatAliases(t *testing.T) {
	raw := []byte(`
name: aliases
total_days: 5
initial_stats: {str: 10, spd: 20, def: 30, dex: 40}
sections:
  - weights: {str: 1, spd: 1, def: 1, dex: 1}
    energy: {mode: manual, manual: 100}
`)
	p, err := DecodePlan(raw, "yaml")
	require.NoError(t, err)
	assert.Equal(t, StatVector{10, 20, 30, 40}, p.InitialStats)
	assert.Equal(t, Uniform(1), p.Sections[0].Weights)

	cfg, err := p.Config(DefaultCatalog(), nil)
	require.NoError(t, err)
	res, err := Simulate(cfg)
	require.NoError(t, err)
	for _, s := range AllStats() {
		assert.Greater(t, res.FinalStats[s], p.InitialStats[s], "stat %s did not train", s)
	}

	j, err := DecodePlan([]byte(`{"name":"j","total_days":5,"initial_stats":{"str":5,"defence":2},"sections":[]}`), "json")
	require.NoError(t, err)
	assert.Equal(t, StatVector{5, 0, 2, 0}, j.InitialStats)

	j, err = DecodePlan([]byte(`{"name":"j","total_days":5,"initial_stats":250,"sections":[]}`), "json")
	require.NoError(t, err)
	assert.Equal(t, Uniform(250), j.InitialStats)
}

func TestDecodePlanRejectsUnknownStat(t *testing.T) {
	_, err := DecodePlan([]byte("name: typo\ntotal_days: 5\ninitial_stats: {strenght: 10}\n"), "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strenght")

	_, err = DecodePlan([]byte(`{"name":"j","total_days":5,"initial_stats":{"luck":1},"sections":[]}`), "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "luck")

	_, err = DecodePlan([]byte("name: twice\ntotal_days: 5\ninitial_stats: {str: 1, strength: 2}\n"), "yaml")
	assert.Error(t, err)
}

func TestPlanWithNaNBenefitIsRejected(t *testing.T) {
	raw := []byte(`
name: nan
total_days: 5
initial_stats: 100
sections:
  - weights: 1
    energy: {mode: manual, manual: 100}
    benefit: {name: custom, unlock_speed: 1, gym_gain_multiplier: .nan}
`)
	p, err := DecodePlan(raw, "yaml")
	require.NoError(t, err)
	cfg, err := p.Config(DefaultCatalog(), nil)
	require.NoError(t, err)
	_, err = Simulate(cfg)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sections[0].benefit", cfgErr.Field)

	p.Sections[0].Benefit = nil
	p.Sections[0].LossRevive = &LossRevivePlan{PerSession: 1, EveryDays: 1, PricePerUnit: math.NaN()}
	_, err = p.Config(DefaultCatalog(), nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "sections[0].loss_revive.price_per_unit", cfgErr.Field)
}

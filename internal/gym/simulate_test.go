package gym

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manualSection(start, end int, energy, happy float64) TrainingSection {
	return TrainingSection{
		StartDay:        start,
		EndDay:          end,
		Weights:         Uniform(1),
		BaseHappy:       happy,
		Energy:          EnergyPolicy{Mode: EnergyManual, ManualEnergy: energy},
		BalanceAfterGym: 99,
	}
}

func lockedConfig(days int, sections ...TrainingSection) SimulationConfig {
	return SimulationConfig{
		InitialStats: Uniform(1000),
		LockGym:      true,
		TotalDays:    days,
		Sections:     sections,
	}
}

func TestSimulateRejectsHorizon(t *testing.T) {
	for _, days := range []int{0, -1, MaxDays + 1} {
		cfg := lockedConfig(days, manualSection(1, 10, 100, 0))
		_, err := Simulate(cfg)
		var cfgErr *ConfigurationError
		require.True(t, errors.As(err, &cfgErr), "days=%d err=%v", days, err)
		assert.Equal(t, "total_days", cfgErr.Field)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestSimulateRejectsBadSection(t *testing.T) {
	sec := manualSection(1, 10, 100, 0)
	sec.DriftPercent = 150
	_, err := Simulate(lockedConfig(10, sec))
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "sections[0].drift_percent", cfgErr.Field)
}

func TestSimulateYearEqualWeights(t *testing.T) {
	res, err := Simulate(lockedConfig(360, manualSection(1, 360, 1000, 5000)))
	require.NoError(t, err)
	require.Len(t, res.Snapshots, 360)

	want := 1000 + 360*250*2*1.2131
	for _, s := range AllStats() {
		assert.InDelta(t, want, res.FinalStats[s], 1e-6, s.String())
	}
	assert.Equal(t, 0, res.FinalGym)
	assert.Empty(t, res.GymChanges)
	assert.InDelta(t, 360_000, res.TotalEnergy, 1e-9)
	assert.Nil(t, res.Costs)
}

func TestSimulateZeroEnergyKeepsStats(t *testing.T) {
	cfg := lockedConfig(30, manualSection(1, 30, 0, 5000))
	cfg.LockGym = false
	res, err := Simulate(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.InitialStats, res.FinalStats)
	assert.Zero(t, res.TotalEnergy)
	assert.Empty(t, res.GymChanges)
}

func TestSimulateStatsNeverDecrease(t *testing.T) {
	sec := TrainingSection{
		StartDay:        1,
		EndDay:          200,
		Weights:         StatVector{3, 1, 1, 2},
		Perks:           []PerkSource{{Name: "education", Percent: StatVector{0, 5, 0, 0}}},
		BaseHappy:       4000,
		Energy:          EnergyPolicy{HoursPlayed: 10, Tier: TierSubscriber, Stimulants: 1},
		DriftPercent:    30,
		BalanceAfterGym: 12,
		Jumps: []JumpConfig{
			{Family: FamilyEDVD, Enabled: true, EveryDays: 7, Quantity: 5, Termination: Indefinite()},
		},
	}
	cfg := SimulationConfig{InitialStats: Uniform(50), TotalDays: 200, Sections: []TrainingSection{sec}}
	res, err := Simulate(cfg)
	require.NoError(t, err)

	prev := cfg.InitialStats
	prevGym := 0
	for _, snap := range res.Snapshots {
		for _, s := range AllStats() {
			require.GreaterOrEqual(t, snap.Stats[s], prev[s], "day %d %s", snap.Day, s)
		}
		require.GreaterOrEqual(t, snap.Gym, prevGym)
		prev, prevGym = snap.Stats, snap.Gym
	}
	assert.Equal(t, res.FinalStats, prev)
}

func TestSimulateWeightRatio(t *testing.T) {
	sec := manualSection(1, 100, 1000, 2000)
	sec.Weights = StatVector{4, 3, 2, 1}
	cfg := lockedConfig(100, sec)
	cfg.InitialStats = StatVector{}
	res, err := Simulate(cfg)
	require.NoError(t, err)

	gained := res.FinalStats
	assert.InDelta(t, 4.0/3, gained[Strength]/gained[Speed], 1e-9)
	assert.InDelta(t, 2.0, gained[Strength]/gained[Defense], 1e-9)
	assert.InDelta(t, 4.0, gained[Strength]/gained[Dexterity], 1e-9)
	assert.InDelta(t, 40_000, res.EnergyByStat[Strength], 1e-9)
}

func TestSimulateIsDeterministic(t *testing.T) {
	start := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
	sec := TrainingSection{
		StartDay:     1,
		EndDay:       60,
		Weights:      StatVector{1, 2, 3, 4},
		BaseHappy:    3000,
		Energy:       EnergyPolicy{HoursPlayed: 16, Tier: TierStandard, Refill: true},
		DriftPercent: 50,
		Jumps: []JumpConfig{
			{Family: FamilyStackedCandy, Enabled: true, EveryDays: 3, Quantity: 10, Termination: AfterCount(5)},
		},
		DiabetesDay:     DiabetesDayConfig{Enabled: true, Jumps: 3, HappyPerJump: 500, Egg: true, EggGainPercent: 10},
		BalanceAfterGym: 6,
	}
	cfg := SimulationConfig{
		InitialStats: Uniform(100),
		TotalDays:    60,
		StartDate:    &start,
		Sections:     []TrainingSection{sec},
		Prices:       PricesFromFloats(map[string]float64{ItemRefill: 1_500_000, string(FamilyStackedCandy): 2_000}),
	}

	a, err := Simulate(cfg)
	require.NoError(t, err)
	b, err := Simulate(cfg)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
	assert.Equal(t, ja, jb)
}

func TestJumpCountTermination(t *testing.T) {
	sec := manualSection(1, 10, 100, 0)
	sec.Jumps = []JumpConfig{{
		Family:      FamilyEnergyDrink,
		Enabled:     true,
		EveryDays:   1,
		Quantity:    1,
		Termination: AfterCount(3),
		Effect:      JumpEffect{GainMultiplier: Uniform(1.5)},
	}}
	res, err := Simulate(lockedConfig(10, sec))
	require.NoError(t, err)

	for _, snap := range res.Snapshots {
		if snap.Day <= 3 {
			assert.Equal(t, Uniform(1.5), snap.Multiplier, "day %d", snap.Day)
			assert.Equal(t, []JumpFamily{FamilyEnergyDrink}, snap.Jumps, "day %d", snap.Day)
			continue
		}
		assert.Equal(t, Uniform(1), snap.Multiplier, "day %d", snap.Day)
		assert.Empty(t, snap.Jumps, "day %d", snap.Day)
	}
}

func TestJumpStatTargetStopsForGood(t *testing.T) {
	sec := manualSection(1, 10, 100, 0)
	sec.Weights = StatVector{1, 0, 0, 0}
	sec.Jumps = []JumpConfig{{
		Family:      FamilyCandy,
		Enabled:     true,
		EveryDays:   1,
		Quantity:    1,
		Termination: UntilStat(Strength, 500),
	}}
	cfg := lockedConfig(10, sec)
	cfg.InitialStats = StatVector{}
	res, err := Simulate(cfg)
	require.NoError(t, err)

	var fired []int
	for _, snap := range res.Snapshots {
		if len(snap.Jumps) > 0 {
			fired = append(fired, snap.Day)
			assert.Equal(t, 50.0, snap.Happiness)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, fired)

	perJump := 100 * 2 * (1 + 50.0/250*0.0485)
	assert.InDelta(t, 3*perJump+7*200, res.FinalStats[Strength], 1e-9)
}

func TestJumpScheduleUsesAbsoluteDay(t *testing.T) {
	sec := manualSection(1, 10, 100, 0)
	sec.Jumps = []JumpConfig{{Family: FamilyCandy, Enabled: true, EveryDays: 3, Quantity: 1, Termination: Indefinite()}}
	res, err := Simulate(lockedConfig(10, sec))
	require.NoError(t, err)

	var fired []int
	for _, snap := range res.Snapshots {
		if len(snap.Jumps) > 0 {
			fired = append(fired, snap.Day)
		}
	}
	assert.Equal(t, []int{1, 4, 7, 10}, fired)
}

func TestJumpCountSpansSections(t *testing.T) {
	jump := JumpConfig{Family: FamilyCandy, Enabled: true, EveryDays: 1, Quantity: 1, Termination: AfterCount(3)}
	first := manualSection(1, 2, 100, 0)
	first.Jumps = []JumpConfig{jump}
	second := manualSection(3, 10, 100, 0)
	second.Jumps = []JumpConfig{jump}

	res, err := Simulate(lockedConfig(10, first, second))
	require.NoError(t, err)

	var fired []int
	for _, snap := range res.Snapshots {
		if len(snap.Jumps) > 0 {
			fired = append(fired, snap.Day)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, fired)
	assert.Equal(t, 1, res.Snapshots[2].Section)
}

func TestFinishedJumpStaysOffInLaterSection(t *testing.T) {
	jump := JumpConfig{Family: FamilyCandy, Enabled: true, EveryDays: 1, Quantity: 1, Termination: AfterCount(3)}
	first := manualSection(1, 5, 100, 0)
	first.Jumps = []JumpConfig{jump}
	second := manualSection(6, 10, 100, 0)
	second.Jumps = []JumpConfig{jump}

	res, err := Simulate(lockedConfig(10, first, second))
	require.NoError(t, err)

	count := 0
	for _, snap := range res.Snapshots {
		count += len(snap.Jumps)
	}
	assert.Equal(t, 3, count)
}

func TestDuplicateJumpFamilyRejected(t *testing.T) {
	sec := manualSection(1, 5, 100, 0)
	sec.Jumps = []JumpConfig{
		{Family: FamilyCandy, Enabled: true, EveryDays: 1, Quantity: 1},
		{Family: FamilyCandy, Enabled: true, EveryDays: 2, Quantity: 1},
	}
	_, err := Simulate(lockedConfig(5, sec))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Field, "jumps[1]")
}

func TestDisabledJumpNeverFires(t *testing.T) {
	sec := manualSection(1, 5, 100, 0)
	sec.Jumps = []JumpConfig{{Family: FamilyEDVD, Enabled: false, EveryDays: 1, Quantity: 1}}
	res, err := Simulate(lockedConfig(5, sec))
	require.NoError(t, err)
	for _, snap := range res.Snapshots {
		assert.Empty(t, snap.Jumps)
		assert.Equal(t, 0.0, snap.Happiness)
	}
}

func TestLossReviveClampsEnergyAndEarns(t *testing.T) {
	sec := manualSection(1, 5, 500, 1000)
	sec.LossRevive = LossReviveConfig{
		Enabled:       true,
		PerSession:    40,
		EnergyPerUnit: 25,
		EveryDays:     1,
		PricePerUnit:  decimal.NewFromInt(1000),
	}
	cfg := lockedConfig(5, sec)
	cfg.Prices = StaticPrices{}
	res, err := Simulate(cfg)
	require.NoError(t, err)

	for _, snap := range res.Snapshots {
		assert.Zero(t, snap.Energy, "day %d", snap.Day)
		require.NotNil(t, snap.Costs)
		assert.True(t, snap.Costs.Earned.Equal(decimal.NewFromInt(40_000)))
	}
	assert.Equal(t, cfg.InitialStats, res.FinalStats)
	require.NotNil(t, res.Costs)
	assert.Equal(t, int64(200), res.Costs.LossReviveUnits)
	assert.True(t, res.Costs.LossReviveIncome.Equal(decimal.NewFromInt(200_000)))
	assert.True(t, res.Costs.Net.Equal(decimal.NewFromInt(200_000)))
	assert.True(t, res.Costs.TotalCost.IsZero())
}

func TestLossRevivePartialDrain(t *testing.T) {
	sec := manualSection(1, 4, 500, 0)
	sec.LossRevive = LossReviveConfig{Enabled: true, PerSession: 4, EnergyPerUnit: 25, EveryDays: 2}
	res, err := Simulate(lockedConfig(4, sec))
	require.NoError(t, err)
	energies := []float64{400, 500, 400, 500}
	for i, snap := range res.Snapshots {
		assert.Equal(t, energies[i], snap.Energy, "day %d", snap.Day)
	}
}

func TestDiabetesDayWindow(t *testing.T) {
	start := time.Date(2026, time.November, 12, 0, 0, 0, 0, time.UTC)
	sec := manualSection(1, 6, 100, 0)
	sec.DiabetesDay = DiabetesDayConfig{
		Enabled:        true,
		Jumps:          2,
		HappyPerJump:   1000,
		Coupon:         true,
		CouponEnergy:   150,
		Egg:            true,
		EggGainPercent: 20,
	}
	cfg := lockedConfig(6, sec)
	cfg.StartDate = &start
	cfg.Prices = PricesFromFloats(map[string]float64{ItemRefillCoupon: 5, ItemEgg: 7})

	res, err := Simulate(cfg)
	require.NoError(t, err)

	for _, snap := range res.Snapshots {
		require.NotNil(t, snap.Date)
		if snap.Day == 2 || snap.Day == 3 {
			assert.Equal(t, 1000.0, snap.Happiness, "day %d", snap.Day)
			assert.Equal(t, 250.0, snap.Energy, "day %d", snap.Day)
			assert.Equal(t, Uniform(1.2), snap.Multiplier, "day %d", snap.Day)
			continue
		}
		assert.Equal(t, 0.0, snap.Happiness, "day %d", snap.Day)
		assert.Equal(t, 100.0, snap.Energy, "day %d", snap.Day)
	}
	assert.Equal(t, time.November, res.Snapshots[1].Date.Month())
	assert.Equal(t, 13, res.Snapshots[1].Date.Day())

	require.NotNil(t, res.Costs)
	require.Len(t, res.Costs.Lines, 2)
	coupon, egg := res.Costs.Lines[0], res.Costs.Lines[1]
	assert.Equal(t, CategoryDiabetesDay, coupon.Category)
	assert.Equal(t, ItemRefillCoupon, coupon.ItemID)
	assert.Equal(t, int64(2), coupon.Units)
	assert.True(t, coupon.Cost.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, ItemEgg, egg.ItemID)
	assert.True(t, egg.Cost.Equal(decimal.NewFromInt(14)))
	assert.True(t, res.Costs.Net.Equal(decimal.NewFromInt(-24)))
}

func TestDiabetesDayNeedsStartDate(t *testing.T) {
	sec := manualSection(1, 20, 100, 0)
	sec.DiabetesDay = DiabetesDayConfig{Enabled: true, Jumps: 3, HappyPerJump: 1000}
	res, err := Simulate(lockedConfig(20, sec))
	require.NoError(t, err)
	for _, snap := range res.Snapshots {
		assert.Nil(t, snap.Date)
		assert.Equal(t, 0.0, snap.Happiness)
	}
}

func TestCostsWithoutPriceTable(t *testing.T) {
	sec := TrainingSection{
		StartDay: 1, EndDay: 5, Weights: Uniform(1),
		Energy: EnergyPolicy{HoursPlayed: 8, Stimulants: 2, Refill: true, Tier: TierStandard},
	}
	cfg := lockedConfig(5, sec)
	res, err := Simulate(cfg)
	require.NoError(t, err)
	assert.Nil(t, res.Costs)
	for _, snap := range res.Snapshots {
		assert.Nil(t, snap.Costs)
	}

	cfg.Prices = PricesFromFloats(map[string]float64{ItemStimulant: 800_000})
	res, err = Simulate(cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Costs)
	require.Len(t, res.Costs.Lines, 2)

	stims, refill := res.Costs.Lines[0], res.Costs.Lines[1]
	assert.Equal(t, CategoryStimulant, stims.Category)
	assert.True(t, stims.Priced)
	assert.Equal(t, int64(10), stims.Units)
	assert.True(t, stims.Cost.Equal(decimal.NewFromInt(8_000_000)))

	assert.Equal(t, CategoryRefill, refill.Category)
	assert.False(t, refill.Priced)
	assert.Equal(t, int64(5), refill.Units)
	assert.True(t, refill.Cost.IsZero())

	assert.True(t, res.Costs.TotalCost.Equal(decimal.NewFromInt(8_000_000)))
	assert.True(t, res.Costs.Net.Equal(decimal.NewFromInt(-8_000_000)))
}

func TestManualEnergyIsNotCharged(t *testing.T) {
	sec := manualSection(1, 3, 1000, 0)
	sec.Energy.Stimulants = 3
	sec.Energy.Refill = true
	cfg := lockedConfig(3, sec)
	cfg.Prices = PricesFromFloats(map[string]float64{ItemStimulant: 1, ItemRefill: 1})
	res, err := Simulate(cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Costs.Lines)
}

func TestSimulateGymProgression(t *testing.T) {
	cfg := lockedConfig(30, manualSection(1, 30, 1000, 0))
	cfg.LockGym = false
	res, err := Simulate(cfg)
	require.NoError(t, err)

	require.NotEmpty(t, res.GymChanges)
	assert.Equal(t, GymChange{Day: 1, From: 0, To: 1, Name: "Average Joes"}, res.GymChanges[0])
	assert.Equal(t, 0, res.Snapshots[0].Gym)
	assert.Equal(t, 1, res.Snapshots[1].Gym)

	seen := map[int]bool{}
	for _, c := range res.GymChanges {
		assert.False(t, seen[c.Day], "two advances on day %d", c.Day)
		seen[c.Day] = true
		assert.Equal(t, c.From+1, c.To)
	}
	assert.Equal(t, res.GymChanges[len(res.GymChanges)-1].To, res.FinalGym)
}

func TestSimulateStartingGymAndBenefit(t *testing.T) {
	sec := manualSection(1, 1, 100, 0)
	sec.Benefit, _ = BenefitByName("fitness_center_3")
	cfg := lockedConfig(1, sec)
	cfg.StartingGym = 7
	cfg.InitialStats = StatVector{}
	res, err := Simulate(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 25*4*1.03, res.FinalStats[Speed], 1e-9)
	assert.Equal(t, 7, res.Snapshots[0].Gym)
}

func TestSimulateSkipsStatsGymCannotTrain(t *testing.T) {
	cfg := lockedConfig(5, manualSection(1, 5, 800, 0))
	cfg.StartingGym = 3
	res, err := Simulate(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.FinalStats[Dexterity])
	assert.Zero(t, res.EnergyByStat[Dexterity])
	assert.InDelta(t, 4000, res.EnergyByStat.Sum(), 1e-9)
}

func TestSimulateRejectsStartingGymOutsideCatalog(t *testing.T) {
	for _, idx := range []int{-1, DefaultCatalog().TotalGyms()} {
		cfg := lockedConfig(5, manualSection(1, 5, 100, 0))
		cfg.StartingGym = idx
		_, err := Simulate(cfg)
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr, "index %d", idx)
		assert.Equal(t, "starting_gym", cfgErr.Field)
	}
}

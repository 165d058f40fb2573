package main

import (
	"testing"

	"gymsim/internal/gym"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"42017.5", "$42,017.50"},
		{"0", "$0.00"},
		{"1200000", "$1,200,000.00"},
	}
	for _, tc := range cases {
		if got := formatMoney(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Fatalf("formatMoney(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatStat(t *testing.T) {
	if got := formatStat(1234); got != "1,234" {
		t.Fatalf("formatStat = %q", got)
	}
	if got := formatDots(0); got != "-" {
		t.Fatalf("formatDots(0) = %q", got)
	}
}

func TestUnlockText(t *testing.T) {
	if got := unlockText(gym.UnlockRule{}); got != "-" {
		t.Fatalf("empty rule = %q", got)
	}
	got := unlockText(gym.UnlockRule{EnergyToUnlock: 3500, RequiresBenefit: "fitness_center_7"})
	if got != "3,500 energy, needs fitness_center_7" {
		t.Fatalf("unlockText = %q", got)
	}
}

func TestGymNameClamps(t *testing.T) {
	catalog := gym.DefaultCatalog()
	if got := gymName(catalog, 0); got != "Premier Fitness" {
		t.Fatalf("gymName(0) = %q", got)
	}
	if got := gymName(catalog, 99); got != "George's" {
		t.Fatalf("gymName(99) = %q", got)
	}
	if got := gymName(gym.Catalog{}, 3); got != "3" {
		t.Fatalf("empty catalog = %q", got)
	}
}

func TestTruncateAndJumps(t *testing.T) {
	if got := truncate("a very long plan name", 10); got != "a very ..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := jumpText([]gym.JumpFamily{gym.FamilyEDVD, gym.FamilyCandy}); got != "edvd+candy" {
		t.Fatalf("jumpText = %q", got)
	}
}

func TestStarterPlanIsValid(t *testing.T) {
	cfg, err := starterPlan().Config(gym.DefaultCatalog(), nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

package gym

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type UnlockRule struct {
	EnergyToUnlock  float64    `json:"energy_to_unlock,omitempty" yaml:"energy_to_unlock"`
	MinTotalStats   float64    `json:"min_total_stats,omitempty" yaml:"min_total_stats"`
	MinStats        StatVector `json:"min_stats" yaml:"min_stats"`
	RequiresBenefit string     `json:"requires_benefit,omitempty" yaml:"requires_benefit"`
}

type Gym struct {
	Name           string     `json:"name" yaml:"name"`
	Ordinal        int        `json:"ordinal" yaml:"-"`
	Dots           StatVector `json:"dots" yaml:"dots"`
	EnergyPerTrain float64    `json:"energy_per_train" yaml:"energy_per_train"`
	Unlock         UnlockRule `json:"unlock" yaml:"unlock"`
}

// Catalog is an immutable, ordered gym list shared read-only between runs.
type Catalog struct {
	gyms []Gym
}

var defaultGyms = []Gym{
	{Name: "Premier Fitness", Dots: StatVector{2.0, 2.0, 2.0, 2.0}, EnergyPerTrain: 5},
	{Name: "Average Joes", Dots: StatVector{2.4, 2.4, 2.8, 2.4}, EnergyPerTrain: 5, Unlock: UnlockRule{EnergyToUnlock: 200}},
	{Name: "Woody's Workout", Dots: StatVector{2.8, 3.2, 3.0, 2.8}, EnergyPerTrain: 5, Unlock: UnlockRule{EnergyToUnlock: 500}},
	{Name: "Beach Bods", Dots: StatVector{3.2, 3.2, 3.2, 0}, EnergyPerTrain: 5, Unlock: UnlockRule{EnergyToUnlock: 1_000}},
	{Name: "Silver Gym", Dots: StatVector{3.4, 3.6, 3.4, 3.2}, EnergyPerTrain: 5, Unlock: UnlockRule{EnergyToUnlock: 2_000}},
	{Name: "Pour Femme", Dots: StatVector{3.4, 3.6, 3.6, 3.8}, EnergyPerTrain: 5, Unlock: UnlockRule{EnergyToUnlock: 2_750}},
	{Name: "Davies Den", Dots: StatVector{3.7, 0, 3.7, 3.7}, EnergyPerTrain: 5, Unlock: UnlockRule{EnergyToUnlock: 3_000}},
	{Name: "Global Gym", Dots: StatVector{4.0, 4.0, 4.0, 4.0}, EnergyPerTrain: 5, Unlock: UnlockRule{EnergyToUnlock: 3_500}},
	{Name: "Knuckle Heads", Dots: StatVector{4.8, 4.4, 4.0, 4.2}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 4_000}},
	{Name: "Pioneer Fitness", Dots: StatVector{4.4, 4.6, 4.8, 4.4}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 6_000}},
	{Name: "Anabolic Anomalies", Dots: StatVector{5.0, 4.6, 5.2, 4.6}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 7_000}},
	{Name: "Core", Dots: StatVector{5.0, 5.2, 5.0, 5.0}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 8_000}},
	{Name: "Racing Fitness", Dots: StatVector{5.0, 5.4, 4.8, 5.2}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 11_000}},
	{Name: "Complete Cardio", Dots: StatVector{5.5, 5.7, 5.5, 5.2}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 12_420}},
	{Name: "Legs, Bums and Tums", Dots: StatVector{0, 5.6, 5.6, 5.8}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 18_000}},
	{Name: "Deep Burn", Dots: StatVector{6.0, 6.0, 6.0, 6.0}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 18_100}},
	{Name: "Apollo Gym", Dots: StatVector{6.0, 6.2, 6.4, 6.2}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 24_140}},
	{Name: "Gun Shop", Dots: StatVector{6.6, 6.4, 6.2, 6.2}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 31_260}},
	{Name: "Force Training", Dots: StatVector{6.4, 6.6, 6.4, 6.8}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 36_610}},
	{Name: "Cha Cha's", Dots: StatVector{6.4, 6.4, 6.8, 7.0}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 46_640}},
	{Name: "Atlas", Dots: StatVector{7.0, 6.4, 6.4, 6.6}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 56_520}},
	{Name: "Last Round", Dots: StatVector{6.8, 6.6, 7.0, 6.6}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 67_775}},
	{Name: "The Edge", Dots: StatVector{6.8, 7.0, 7.0, 6.8}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 84_535}},
	{Name: "George's", Dots: StatVector{7.3, 7.3, 7.3, 7.3}, EnergyPerTrain: 10, Unlock: UnlockRule{EnergyToUnlock: 106_305}},
}

func DefaultCatalog() Catalog {
	c, err := NewCatalog(defaultGyms)
	if err != nil {
		panic(err)
	}
	return c
}

func NewCatalog(gyms []Gym) (Catalog, error) {
	if len(gyms) == 0 {
		return Catalog{}, fmt.Errorf("%w: no gyms", ErrInvalidCatalog)
	}
	out := make([]Gym, len(gyms))
	for i, g := range gyms {
		g.Name = strings.TrimSpace(g.Name)
		if g.Name == "" {
			return Catalog{}, fmt.Errorf("%w: gym %d has no name", ErrInvalidCatalog, i)
		}
		if g.Dots.min() < 0 || !g.Dots.finite() {
			return Catalog{}, fmt.Errorf("%w: gym %q has negative dots", ErrInvalidCatalog, g.Name)
		}
		if g.EnergyPerTrain <= 0 {
			return Catalog{}, fmt.Errorf("%w: gym %q energy per train must be > 0", ErrInvalidCatalog, g.Name)
		}
		if g.Unlock.EnergyToUnlock < 0 || g.Unlock.MinTotalStats < 0 || g.Unlock.MinStats.min() < 0 {
			return Catalog{}, fmt.Errorf("%w: gym %q has negative unlock requirements", ErrInvalidCatalog, g.Name)
		}
		g.Ordinal = i
		out[i] = g
	}
	return Catalog{gyms: out}, nil
}

func LoadCatalogYAML(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var doc struct {
		Gyms []Gym `yaml:"gyms"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return NewCatalog(doc.Gyms)
}

func (c Catalog) GymAt(index int) Gym {
	return c.gyms[index]
}

func (c Catalog) TotalGyms() int {
	return len(c.gyms)
}

func (c Catalog) Clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index >= len(c.gyms) {
		return len(c.gyms) - 1
	}
	return index
}

func (c Catalog) IsZero() bool {
	return len(c.gyms) == 0
}

func (c Catalog) Gyms() []Gym {
	out := make([]Gym, len(c.gyms))
	copy(out, c.gyms)
	return out
}

func (c Catalog) IndexOf(name string) (int, bool) {
	for i, g := range c.gyms {
		if strings.EqualFold(g.Name, strings.TrimSpace(name)) {
			return i, true
		}
	}
	return 0, false
}

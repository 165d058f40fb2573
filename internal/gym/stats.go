package gym

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

type Stat int

const (
	Strength Stat = iota
	Speed
	Defense
	Dexterity
)

const NumStats = 4

var statNames = [NumStats]string{"strength", "speed", "defense", "dexterity"}

var statAliases = map[string]Stat{
	"strength":  Strength,
	"str":       Strength,
	"speed":     Speed,
	"spd":       Speed,
	"defense":   Defense,
	"defence":   Defense,
	"def":       Defense,
	"dexterity": Dexterity,
	"dex":       Dexterity,
}

func AllStats() []Stat {
	return []Stat{Strength, Speed, Defense, Dexterity}
}

func ParseStat(v string) (Stat, error) {
	s, ok := statAliases[strings.ToLower(strings.TrimSpace(v))]
	if !ok {
		return 0, fmt.Errorf("unknown stat %q", v)
	}
	return s, nil
}

func (s Stat) String() string {
	if s < 0 || int(s) >= NumStats {
		return fmt.Sprintf("stat(%d)", int(s))
	}
	return statNames[s]
}

func (s Stat) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stat) UnmarshalText(b []byte) error {
	v, err := ParseStat(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StatVector holds one value per stat, indexed by Stat.
type StatVector [NumStats]float64

func Uniform(v float64) StatVector {
	return StatVector{v, v, v, v}
}

func (v StatVector) Get(s Stat) float64 {
	return v[s]
}

func (v StatVector) Add(o StatVector) StatVector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v StatVector) Scale(k float64) StatVector {
	for i := range v {
		v[i] *= k
	}
	return v
}

func (v StatVector) Sum() float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	return total
}

func (v StatVector) IsZero() bool {
	return v == StatVector{}
}

func (v StatVector) finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v StatVector) min() float64 {
	out := v[0]
	for _, x := range v[1:] {
		if x < out {
			out = x
		}
	}
	return out
}

// neutral replaces unset (zero) components with 1 so the vector can be used as a multiplier.
func (v StatVector) neutral() StatVector {
	for i := range v {
		if v[i] == 0 {
			v[i] = 1
		}
	}
	return v
}

type statFields struct {
	Strength  float64 `json:"strength" yaml:"strength"`
	Speed     float64 `json:"speed" yaml:"speed"`
	Defense   float64 `json:"defense" yaml:"defense"`
	Dexterity float64 `json:"dexterity" yaml:"dexterity"`
}

func (v StatVector) fields() statFields {
	return statFields{Strength: v[Strength], Speed: v[Speed], Defense: v[Defense], Dexterity: v[Dexterity]}
}

func (v StatVector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.fields())
}

// UnmarshalJSON accepts a single number applied to every stat or an object keyed
// by stat name or alias. Unknown keys are rejected.
func (v *StatVector) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] != '{' {
		var x float64
		if err := json.Unmarshal(trimmed, &x); err != nil {
			return fmt.Errorf("stat vector: %w", err)
		}
		*v = Uniform(x)
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("stat vector: %w", err)
	}
	out, err := vectorFromMap(m)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func (v StatVector) MarshalYAML() (any, error) {
	return v.fields(), nil
}

func (v *StatVector) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var x float64
		if err := node.Decode(&x); err != nil {
			return err
		}
		*v = Uniform(x)
		return nil
	}
	var m map[string]float64
	if err := node.Decode(&m); err != nil {
		return err
	}
	out, err := vectorFromMap(m)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = out
	return nil
}

func vectorFromMap(m map[string]float64) (StatVector, error) {
	var out StatVector
	var set [NumStats]string
	for key, x := range m {
		s, err := ParseStat(key)
		if err != nil {
			return StatVector{}, err
		}
		if set[s] != "" {
			return StatVector{}, fmt.Errorf("stat %s set twice (%q and %q)", s, set[s], key)
		}
		set[s] = key
		out[s] = x
	}
	return out, nil
}

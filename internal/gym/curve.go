package gym

import (
	"fmt"
	"math"
	"sort"
)

// HappinessCurve maps a happiness value to a gain factor. Implementations must be
// non-decreasing in happy.
type HappinessCurve interface {
	Factor(happy float64) float64
}

type CurvePoint struct {
	Happy  float64 `json:"happy" yaml:"happy"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// TableCurve interpolates linearly between points and is flat outside them.
type TableCurve struct {
	points []CurvePoint
}

var defaultCurvePoints = []CurvePoint{
	{Happy: 0, Factor: 1.0},
	{Happy: 250, Factor: 1.0485},
	{Happy: 1_000, Factor: 1.1127},
	{Happy: 5_000, Factor: 1.2131},
	{Happy: 25_000, Factor: 1.3231},
	{Happy: MaxHappy, Factor: 1.4196},
}

func DefaultCurve() TableCurve {
	c, err := NewTableCurve(defaultCurvePoints)
	if err != nil {
		panic(err)
	}
	return c
}

func NewTableCurve(points []CurvePoint) (TableCurve, error) {
	if len(points) == 0 {
		return TableCurve{}, fmt.Errorf("happiness curve needs at least one point")
	}
	out := make([]CurvePoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Happy < out[j].Happy })
	for i, p := range out {
		if math.IsNaN(p.Happy) {
			return TableCurve{}, fmt.Errorf("happiness curve point must have a numeric happy value")
		}
		if p.Factor < 0 || math.IsNaN(p.Factor) || math.IsInf(p.Factor, 0) {
			return TableCurve{}, fmt.Errorf("happiness curve factor at %.0f must be >= 0", p.Happy)
		}
		if i > 0 && p.Factor < out[i-1].Factor {
			return TableCurve{}, fmt.Errorf("happiness curve must be non-decreasing at %.0f", p.Happy)
		}
	}
	return TableCurve{points: out}, nil
}

func (c TableCurve) Points() []CurvePoint {
	out := make([]CurvePoint, len(c.points))
	copy(out, c.points)
	return out
}

func (c TableCurve) Factor(happy float64) float64 {
	if len(c.points) == 0 {
		return 1
	}
	first, last := c.points[0], c.points[len(c.points)-1]
	if happy <= first.Happy || math.IsNaN(happy) {
		return first.Factor
	}
	if happy >= last.Happy {
		return last.Factor
	}
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Happy >= happy })
	lo, hi := c.points[i-1], c.points[i]
	if hi.Happy == lo.Happy {
		return hi.Factor
	}
	t := (happy - lo.Happy) / (hi.Happy - lo.Happy)
	return lo.Factor + t*(hi.Factor-lo.Factor)
}

// LogCurve is 1 + K*ln(1 + happy/250), saturating at Cap.
type LogCurve struct {
	K   float64
	Cap float64
}

func (c LogCurve) Factor(happy float64) float64 {
	limit := c.Cap
	if limit <= 0 {
		limit = MaxHappy
	}
	if math.IsNaN(happy) {
		return 1
	}
	h := math.Max(0, math.Min(happy, limit))
	return 1 + c.K*math.Log1p(h/250)
}

func CurveByName(name string) (HappinessCurve, error) {
	switch name {
	case "", "table":
		return DefaultCurve(), nil
	case "log":
		return LogCurve{K: 0.07, Cap: MaxHappy}, nil
	default:
		return nil, fmt.Errorf("unknown happiness curve %q", name)
	}
}

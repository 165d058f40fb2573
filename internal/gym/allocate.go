package gym

import "math"

type AllocationInput struct {
	Energy                  float64
	Weights                 StatVector
	Perks                   StatVector
	DriftPercent            float64
	IgnorePerksForSelection bool
	GymIndex                int
	BalanceAfterGym         int
	Dots                    StatVector
	Multiplier              StatVector
}

// Allocate splits the day's energy across stats. Stats the current gym cannot train
// (zero dots) get no energy while another weighted stat can train. With no drift,
// perks ignored, or once the milestone gym is reached the split follows the weights
// exactly; otherwise up to DriftPercent of the energy moves to the stat with the best
// perk-adjusted gain.
func Allocate(in AllocationInput) StatVector {
	if in.Energy <= 0 {
		return StatVector{}
	}
	in.Weights = trainableWeights(in.Weights, in.Dots)
	prop := proportional(in.Energy, in.Weights)
	drift := math.Min(math.Max(in.DriftPercent, 0), 100) / 100
	if in.IgnorePerksForSelection || drift == 0 || in.GymIndex >= in.BalanceAfterGym {
		return prop
	}
	best, ok := bestStat(in.Weights, in.Perks, in.Dots, in.Multiplier.neutral())
	if !ok {
		return prop
	}
	var out StatVector
	for i := range out {
		out[i] = (1 - drift) * prop[i]
	}
	out[best] += drift * in.Energy
	return out
}

func trainableWeights(weights, dots StatVector) StatVector {
	out := weights
	for i := range out {
		if dots[i] <= 0 {
			out[i] = 0
		}
	}
	for _, w := range out {
		if w > 0 {
			return out
		}
	}
	return weights
}

func proportional(energy float64, weights StatVector) StatVector {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	var out StatVector
	if total <= 0 {
		return out
	}
	for i, w := range weights {
		if w > 0 {
			out[i] = energy * w / total
		}
	}
	return out
}

const scoreEpsilon = 1e-12

func bestStat(weights, perks, dots, mult StatVector) (Stat, bool) {
	best := Stat(-1)
	bestScore := 0.0
	for _, s := range AllStats() {
		if weights[s] <= 0 {
			continue
		}
		score := dots[s] * perkMultiplier(perks, s) * mult[s]
		if best < 0 {
			best, bestScore = s, score
			continue
		}
		diff := score - bestScore
		tol := scoreEpsilon * math.Max(1, math.Abs(bestScore))
		switch {
		case diff > tol:
			best, bestScore = s, score
		case math.Abs(diff) <= tol && weights[s] > weights[best]:
			best, bestScore = s, score
		}
	}
	return best, best >= 0
}

// Package bandit implements the local Thompson-sampling selector
// (C10): when the qortex sidecar is unavailable and selection cannot
// be deferred, arms are drawn from persisted Beta posteriors and
// greedily packed into a token budget.
package bandit

import (
	"math"
	"math/rand"
	"sort"
)

// ArmType names the kind of prompt component an Arm represents.
type ArmType string

const (
	ArmTypeTool    ArmType = "tool"
	ArmTypeSkill   ArmType = "skill"
	ArmTypeFile    ArmType = "file"
	ArmTypeMemory  ArmType = "memory"
	ArmTypeSection ArmType = "section"
)

// Source distinguishes an arm's prior: curated arms start from a
// stronger (3,1) Beta prior; learned arms start from an uninformative
// (1,1) prior.
type Source string

const (
	SourceCurated Source = "curated"
	SourceLearned Source = "learned"
)

// Arm is a candidate prompt component considered for inclusion under a
// token budget. ID has the structure "type:category:label".
type Arm struct {
	ID        string
	Type      ArmType
	Category  string
	Label     string
	TokenCost int
	Source    Source
}

// ID builds the "type:category:label" arm identifier.
func ID(t ArmType, category, label string) string {
	return string(t) + ":" + category + ":" + label
}

// Posterior is a Beta(alpha, beta) distribution representing current
// belief about an arm's reward probability, plus bookkeeping.
type Posterior struct {
	Alpha       float64
	Beta        float64
	Pulls       int
	LastUpdated int64 // unix millis
}

// InitialPrior returns the prior posterior for an arm with no
// observations yet: (3,1) for curated arms, (1,1) for learned arms.
func InitialPrior(source Source) Posterior {
	if source == SourceCurated {
		return Posterior{Alpha: 3, Beta: 1}
	}
	return Posterior{Alpha: 1, Beta: 1}
}

// Update applies an observed outcome to a posterior: alpha += reward,
// beta += (1-reward), pulls += 1. Reward is expected to be 0 or 1
// (arm referenced in the assistant output, or not) but any value in
// [0,1] is accepted.
func Update(p Posterior, reward float64, nowMillis int64) Posterior {
	p.Alpha += reward
	p.Beta += 1 - reward
	p.Pulls++
	p.LastUpdated = nowMillis
	return p
}

// Params parameterizes a Select call.
type Params struct {
	Arms         []Arm
	Posteriors   map[string]Posterior
	TokenBudget  int
	BaselineRate float64 // [0,1]
	MinPulls     int
	SeedArmIDs   map[string]bool
}

// Result is the outcome of a local selection.
type Result struct {
	SelectedArms []string
	ExcludedArms []string
	IsBaseline   bool
	Scores       map[string]float64
	UsedTokens   int
}

// Select picks arms under the token budget: with probability
// BaselineRate, include as many arms as fit the budget in their given
// order (baseline mode); otherwise sample each arm's Beta posterior
// (boosting seed/under-pulled arms), sort by sampled score descending
// (ties: lower token cost, then id), and greedily knapsack into the
// budget. rnd must not be nil; callers pass a *rand.Rand seeded per
// call so results are reproducible in tests.
func Select(p Params, rnd *rand.Rand) Result {
	if rnd.Float64() < p.BaselineRate {
		return baselineSelect(p.Arms, p.TokenBudget)
	}
	return sampledSelect(p, rnd)
}

func baselineSelect(arms []Arm, tokenBudget int) Result {
	unbounded := tokenBudget == 0
	res := Result{IsBaseline: true, Scores: map[string]float64{}}
	remaining := tokenBudget
	for _, a := range arms {
		if unbounded || a.TokenCost <= remaining {
			res.SelectedArms = append(res.SelectedArms, a.ID)
			res.UsedTokens += a.TokenCost
			if !unbounded {
				remaining -= a.TokenCost
			}
		} else {
			res.ExcludedArms = append(res.ExcludedArms, a.ID)
		}
	}
	return res
}

type scoredArm struct {
	arm   Arm
	score float64
}

// sortScored orders scored arms by sampled score descending, breaking
// ties by lower token cost then by id.
func sortScored(scored []scoredArm) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		if scored[i].arm.TokenCost != scored[j].arm.TokenCost {
			return scored[i].arm.TokenCost < scored[j].arm.TokenCost
		}
		return scored[i].arm.ID < scored[j].arm.ID
	})
}

func sampledSelect(p Params, rnd *rand.Rand) Result {
	scored := make([]scoredArm, 0, len(p.Arms))
	for _, a := range p.Arms {
		post, ok := p.Posteriors[a.ID]
		if !ok {
			post = InitialPrior(a.Source)
		}

		s := sampleBeta(post.Alpha, post.Beta, rnd)
		boosted := p.SeedArmIDs[a.ID] || post.Pulls < p.MinPulls
		if boosted && s < 0.75 {
			s = 0.75
		}
		scored = append(scored, scoredArm{arm: a, score: s})
	}

	sortScored(scored)

	unbounded := p.TokenBudget == 0
	res := Result{Scores: map[string]float64{}}
	remaining := p.TokenBudget
	for _, sa := range scored {
		res.Scores[sa.arm.ID] = sa.score
		if unbounded || sa.arm.TokenCost <= remaining {
			res.SelectedArms = append(res.SelectedArms, sa.arm.ID)
			res.UsedTokens += sa.arm.TokenCost
			if !unbounded {
				remaining -= sa.arm.TokenCost
			}
		} else {
			res.ExcludedArms = append(res.ExcludedArms, sa.arm.ID)
		}
	}
	return res
}

// sampleBeta draws one sample from Beta(alpha, beta) via two Gamma(·,1)
// draws: x = Gamma(alpha), y = Gamma(beta), return x/(x+y).
func sampleBeta(alpha, beta float64, rnd *rand.Rand) float64 {
	x := sampleGamma(alpha, rnd)
	y := sampleGamma(beta, rnd)
	if x+y == 0 {
		return 0
	}
	return x / (x + y)
}

// sampleGamma draws one sample from Gamma(shape, 1) using
// Marsaglia-Tsang for shape >= 1, and the standard boost-and-rescale
// trick (sample Gamma(shape+1,1), then scale by U^(1/shape)) for
// shape < 1.
func sampleGamma(shape float64, rnd *rand.Rand) float64 {
	if shape < 1 {
		u := rnd.Float64()
		return sampleGamma(shape+1, rnd) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = rnd.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rnd.Float64()
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v
		}
		if math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

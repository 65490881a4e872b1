package bandit

import (
	"math/rand"
	"time"
)

// Selector wraps a Store so callers can select and observe without
// threading posterior maps through by hand.
type Selector struct {
	store *Store
}

// NewSelector constructs a Selector over store.
func NewSelector(store *Store) *Selector {
	return &Selector{store: store}
}

// Select loads the current posteriors for the given arms and runs
// Thompson-sampling selection over them.
func (sel *Selector) Select(arms []Arm, tokenBudget int, baselineRate float64, minPulls int, seedArmIDs map[string]bool, rnd *rand.Rand) (Result, error) {
	posteriors, err := sel.store.All()
	if err != nil {
		return Result{}, err
	}
	return Select(Params{
		Arms:         arms,
		Posteriors:   posteriors,
		TokenBudget:  tokenBudget,
		BaselineRate: baselineRate,
		MinPulls:     minPulls,
		SeedArmIDs:   seedArmIDs,
	}, rnd), nil
}

// Observe records an outcome for armID, updating its persisted
// posterior. Excluded arms receive no update; callers must not
// Observe them.
func (sel *Selector) Observe(armID string, source Source, reward float64, now time.Time) error {
	_, err := sel.store.Observe(armID, source, reward, now)
	return err
}

// NewRand returns a *rand.Rand seeded from the current time, suitable
// for a single Select call. Callers needing reproducibility in tests
// construct their own rand.New(rand.NewSource(seed)) instead.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

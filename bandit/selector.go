package bandit

import (
	"math/rand"
	"slices"
	"time"
)

const (
	// Epsilon is the probability that the first slot explores (uniform pick)
	// instead of exploiting the best-ranked arm.
	Epsilon = 0.1

	// ColdThreshold is the sample count below which an arm is ranked at
	// ColdReward regardless of its stored reward.
	ColdThreshold = 3
)

// Selector picks arms and race participants. It owns no state beyond its
// random sources, which must not be shared with another goroutine.
type Selector struct {
	pick    *rand.Rand
	shuffle *rand.Rand
	now     func() time.Time
}

// NewSelector creates a Selector drawing from the selector and fallback
// streams of rng.
func NewSelector(rng *RNG) *Selector {
	return &Selector{
		pick:    rng.Stream(StreamSelector),
		shuffle: rng.Stream(StreamFallback),
		now:     time.Now,
	}
}

// WithClock overrides the time used for decay. Intended for tests.
func (s *Selector) WithClock(now func() time.Time) *Selector {
	s.now = now
	return s
}

type scoredArm struct {
	key    string
	reward float64
}

// SelectArms returns up to n distinct arm keys from candidates.
//
// Slot 1 exploits with probability 1-Epsilon (highest ranking reward, first
// candidate wins ties) and otherwise picks uniformly among all candidates.
// Slots 2..n are uniform without replacement over what remains. Cold arms
// (absent, or fewer than ColdThreshold samples) rank at ColdReward. Stored
// rewards are decayed for ranking only; state is not modified.
func (s *Selector) SelectArms(state State, candidates []string, n int) []string {
	remaining := s.score(state, dedupe(candidates))
	if n <= 0 || len(remaining) == 0 {
		return []string{}
	}
	count := min(n, len(remaining))
	selected := make([]string, 0, count)

	// Slot 1: exploit or explore
	idx := 0
	if s.pick.Float64() < 1-Epsilon {
		for i := 1; i < len(remaining); i++ {
			if remaining[i].reward > remaining[idx].reward {
				idx = i
			}
		}
	} else {
		idx = s.pick.Intn(len(remaining))
	}
	selected = append(selected, remaining[idx].key)
	remaining = slices.Delete(remaining, idx, idx+1)

	// Slots 2..n: uniform over the remainder
	for len(selected) < count {
		idx = s.pick.Intn(len(remaining))
		selected = append(selected, remaining[idx].key)
		remaining = slices.Delete(remaining, idx, idx+1)
	}
	return selected
}

func (s *Selector) score(state State, candidates []string) []scoredArm {
	decayed := state.Clone()
	ApplyDecay(decayed, s.now())

	scored := make([]scoredArm, len(candidates))
	for i, key := range candidates {
		reward := ColdReward
		if arm, ok := decayed[key]; ok && arm.N >= ColdThreshold {
			reward = arm.Reward
		}
		scored[i] = scoredArm{key: key, reward: reward}
	}
	return scored
}

// SelectRaceProviders picks race participants when there is nothing learned
// to rank on. With at most limit configured backends all of them race.
// Otherwise preferred (when configured) takes the first slot and the rest are
// a uniform sample of the other configured backends. limit below 1 counts
// as 1.
func (s *Selector) SelectRaceProviders(configured []string, preferred string, limit int) []string {
	limit = max(limit, 1)
	if len(configured) <= limit {
		return slices.Clone(configured)
	}

	hasPreferred := slices.Contains(configured, preferred)
	others := make([]string, 0, len(configured))
	for _, name := range configured {
		if hasPreferred && name == preferred {
			continue
		}
		others = append(others, name)
	}
	s.shuffle.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})

	if !hasPreferred {
		return others[:limit]
	}
	selected := make([]string, 0, limit)
	selected = append(selected, preferred)
	return append(selected, others[:limit-1]...)
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

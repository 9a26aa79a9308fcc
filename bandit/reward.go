package bandit

import (
	"math"
	"time"
)

const (
	// ColdReward is the neutral prior: the reward of a fresh arm, the ranking
	// reward of cold arms, and the value decay pulls stale arms toward.
	ColdReward = 0.5

	// speedFloor is the share of reward a fully reliable arm keeps even when
	// it is the slowest arm in the state; speedWeight is the share earned by
	// relative speed.
	speedFloor  = 0.3
	speedWeight = 0.7

	// DecayStartDays is how long an arm may go unused before decay begins.
	DecayStartDays = 7.0

	// DecayDurationDays is how long after DecayStartDays the decay takes to
	// reach the prior completely.
	DecayDurationDays = 30.0
)

// ComputeReward recomputes the reward of every arm in place:
//
//	reward = success_rate × (0.3 + 0.7 × normalized_speed)
//
// normalized_speed is 1 for the fastest arm and 0 for the slowest, relative
// to the current min/max avg_latency across the whole state (1 for all arms
// when every latency is equal). Touching a single arm can therefore shift the
// reward of every other arm. An empty state is left as is.
func ComputeReward(state State) {
	if len(state) == 0 {
		return
	}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	for _, arm := range state {
		if arm == nil {
			continue
		}
		minLat = math.Min(minLat, arm.AvgLatency)
		maxLat = math.Max(maxLat, arm.AvgLatency)
	}

	for _, arm := range state {
		if arm == nil {
			continue
		}
		normalized := 1.0
		if maxLat != minLat {
			normalized = (maxLat - arm.AvgLatency) / (maxLat - minLat)
		}
		arm.Reward = arm.SuccessRate * (speedFloor + speedWeight*normalized)
	}
}

// ApplyDecay pulls the reward of arms unused for more than DecayStartDays
// toward ColdReward, linearly over DecayDurationDays. Arms idle for
// DecayStartDays+DecayDurationDays or longer sit exactly at ColdReward.
// Arms without LastUsed are left untouched.
//
// ApplyDecay mutates state. Selection applies it to a clone so the decayed
// value is never written back and never compounds across selections.
func ApplyDecay(state State, now time.Time) {
	for _, arm := range state {
		if arm == nil || arm.LastUsed.IsZero() {
			continue
		}
		daysOld := now.Sub(arm.LastUsed).Hours() / 24
		if daysOld <= DecayStartDays {
			continue
		}
		frac := (daysOld - DecayStartDays) / DecayDurationDays
		if frac >= 1 {
			arm.Reward = ColdReward
			continue
		}
		arm.Reward += (ColdReward - arm.Reward) * frac
	}
}

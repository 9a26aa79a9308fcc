package bandit

import (
	"context"
	"fmt"
	"time"
)

// Observation is one participant's result in a race, expressed against the
// arm it is tracked under.
type Observation struct {
	Arm       string
	LatencyMs float64
	Success   bool
}

// UpdateArm folds one observation into the arm at key, creating the arm at
// the prior if absent, then recomputes the reward of every arm.
//
// avg_latency and success_rate are exact incremental means:
//
//	mean_n = mean_{n-1} + (x - mean_{n-1}) / n
func UpdateArm(state State, key string, latencyMs float64, success bool, now time.Time) {
	arm, ok := state[key]
	if !ok || arm == nil {
		arm = &Arm{Reward: ColdReward}
		state[key] = arm
	}

	hit := 0.0
	if success {
		hit = 1.0
	}
	arm.N++
	arm.AvgLatency += (latencyMs - arm.AvgLatency) / float64(arm.N)
	arm.SuccessRate += (hit - arm.SuccessRate) / float64(arm.N)
	arm.LastUsed = now

	ComputeReward(state)
}

// Recorder closes the learning loop: it folds observations into the
// persisted state with one load and one save.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over the given arm store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time stamped into LastUsed. Intended for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Record folds every observation into the stored state and saves it.
// Nothing is loaded or saved when observations is empty.
func (r *Recorder) Record(ctx context.Context, observations []Observation) error {
	if len(observations) == 0 {
		return nil
	}
	state, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading bandit state: %w", err)
	}
	if state == nil {
		state = State{}
	}
	now := r.now()
	for _, o := range observations {
		UpdateArm(state, o.Arm, o.LatencyMs, o.Success, now)
	}
	if err := r.store.Save(ctx, state); err != nil {
		return fmt.Errorf("saving bandit state: %w", err)
	}
	return nil
}

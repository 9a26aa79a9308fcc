package bandit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeReward_FastestAndSlowest(t *testing.T) {
	// GIVEN a fast reliable arm and a slow flaky arm
	state := State{
		"fast:m": {N: 5, AvgLatency: 100, SuccessRate: 1},
		"slow:m": {N: 5, AvgLatency: 300, SuccessRate: 0.5},
		"mid:m":  {N: 5, AvgLatency: 200, SuccessRate: 1},
	}

	// WHEN rewards are recomputed
	ComputeReward(state)

	// THEN the fastest earns the full speed share and the slowest only the floor
	assert.InDelta(t, 1.0, state["fast:m"].Reward, 1e-9)
	assert.InDelta(t, 0.15, state["slow:m"].Reward, 1e-9)
	assert.InDelta(t, 0.65, state["mid:m"].Reward, 1e-9)
}

func TestComputeReward_EqualLatencies_RewardIsSuccessRate(t *testing.T) {
	state := State{
		"a:m": {N: 1, AvgLatency: 250, SuccessRate: 1},
		"b:m": {N: 1, AvgLatency: 250, SuccessRate: 0.25},
	}

	ComputeReward(state)

	assert.Equal(t, 1.0, state["a:m"].Reward)
	assert.Equal(t, 0.25, state["b:m"].Reward)
}

func TestComputeReward_AlwaysWithinUnitInterval(t *testing.T) {
	state := State{
		"a:m": {N: 9, AvgLatency: 0, SuccessRate: 1},
		"b:m": {N: 2, AvgLatency: 12000, SuccessRate: 0},
		"c:m": {N: 4, AvgLatency: 640, SuccessRate: 0.75},
		"d:m": nil,
	}

	ComputeReward(state)

	for key, arm := range state {
		if arm == nil {
			continue
		}
		if arm.Reward < 0 || arm.Reward > 1 {
			t.Errorf("%s: reward %v outside [0,1]", key, arm.Reward)
		}
	}
}

func TestComputeReward_EmptyState_NoPanic(t *testing.T) {
	assert.NotPanics(t, func() { ComputeReward(State{}) })
}

func TestApplyDecay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name   string
		reward float64
		idle   time.Duration
		want   float64
	}{
		{"fresh arm untouched", 0.9, 2 * day, 0.9},
		{"exactly at decay start untouched", 0.9, 7 * day, 0.9},
		{"halfway decays halfway", 0.9, 22 * day, 0.7},
		{"halfway from below", 0.1, 22 * day, 0.3},
		{"fully decayed", 0.9, 37 * day, ColdReward},
		{"long idle sits at prior", 0.05, 400 * day, ColdReward},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := State{"a:m": {N: 10, Reward: tt.reward, LastUsed: now.Add(-tt.idle)}}

			ApplyDecay(state, now)

			assert.InDelta(t, tt.want, state["a:m"].Reward, 1e-9)
		})
	}
}

func TestApplyDecay_FullyDecayed_IsExactlyPrior(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	state := State{"a:m": {N: 10, Reward: 0.93, LastUsed: now.AddDate(0, 0, -60)}}

	ApplyDecay(state, now)

	assert.Equal(t, ColdReward, state["a:m"].Reward)
}

func TestApplyDecay_NeverUsed_Untouched(t *testing.T) {
	state := State{"a:m": {N: 0, Reward: 0.2}, "b:m": nil}

	ApplyDecay(state, time.Now())

	assert.Equal(t, 0.2, state["a:m"].Reward)
}

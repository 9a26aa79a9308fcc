package bandit

import (
	"context"
	"strings"
	"time"
)

// UnknownModel is used as the model half of an arm key when neither the
// configuration nor the built-in defaults name a model for a backend.
const UnknownModel = "unknown"

// Arm is the performance record of one backend+model combination.
//
// AvgLatency (milliseconds) and SuccessRate are exact running means of every
// observation ever folded into the arm. Reward is derived by ComputeReward.
// LastUsed is zero for arms that were never observed.
type Arm struct {
	N           int       `json:"n"`
	AvgLatency  float64   `json:"avg_latency"`
	SuccessRate float64   `json:"success_rate"`
	Reward      float64   `json:"reward"`
	LastUsed    time.Time `json:"last_used,omitzero"`
}

// State maps arm keys to arms. It is the entire learned model, persisted as
// one document and replaced wholesale on every save.
type State map[string]*Arm

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, a := range s {
		if a == nil {
			continue
		}
		cp := *a
		out[k] = &cp
	}
	return out
}

// Store loads and saves the whole State. Load returns an empty State when
// nothing has been persisted yet; any other failure is returned.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Key builds the composite arm key "backend:model".
func Key(backend, model string) string {
	return backend + ":" + model
}

// BackendOf returns the backend half of an arm key. Model ids may contain
// ':' (e.g. "llama3:8b"), so the split is on the first separator only.
func BackendOf(key string) string {
	backend, _, _ := strings.Cut(key, ":")
	return backend
}

package bandit

import (
	"context"
	"fmt"
)

// Strategy names how backends are chosen for an invocation.
type Strategy string

const (
	// StrategyAuto lets the bandit pick and race backends.
	StrategyAuto Strategy = "auto"
	// StrategyManual always uses the preferred backend alone.
	StrategyManual Strategy = "manual"
)

// ValidStrategies is the set of recognized strategy names. Empty means auto.
var ValidStrategies = map[Strategy]bool{"": true, StrategyAuto: true, StrategyManual: true}

// Settings is the part of the user configuration the policy consumes.
type Settings interface {
	SelectionStrategy() Strategy
	PreferredBackend() string
	// DefaultModel returns the configured default model of a backend, or ""
	// when the configuration does not name one.
	DefaultModel(backend string) string
}

// Mode records which branch of PickProviders produced a Selection.
type Mode string

const (
	ModeManual     Mode = "manual"
	ModeBandit     Mode = "bandit"
	ModeRandomRace Mode = "random-race"
)

// Selection is the outcome of PickProviders.
type Selection struct {
	Backends []string
	Arms     []string // arm keys parallel to Backends; nil when nothing is learned
	Mode     Mode
}

// Policy turns configuration and learned state into the backends of a race.
type Policy struct {
	store    Store
	selector *Selector
}

// NewPolicy creates a Policy over the given arm store and selector.
func NewPolicy(store Store, selector *Selector) *Policy {
	return &Policy{store: store, selector: selector}
}

// ModelFor resolves the model a backend runs with: the configured default,
// then the built-in default, then UnknownModel.
func ModelFor(settings Settings, backend string, defaults map[string]string) string {
	if m := settings.DefaultModel(backend); m != "" {
		return m
	}
	if m := defaults[backend]; m != "" {
		return m
	}
	return UnknownModel
}

// ArmFor returns the arm key a backend is tracked under.
func ArmFor(settings Settings, backend string, defaults map[string]string) string {
	return Key(backend, ModelFor(settings, backend, defaults))
}

// PickProviders decides the backends for one invocation.
//
//   - manual: exactly the preferred backend, nothing learned.
//   - more than one configured backend: one candidate arm per backend, ranked
//     by SelectArms over the stored state.
//   - otherwise: SelectRaceProviders, nothing learned (no comparison is
//     possible with a single candidate).
//
// Store load failures are returned.
func (p *Policy) PickProviders(ctx context.Context, settings Settings, configured []string, defaults map[string]string, limit int) (Selection, error) {
	if settings.SelectionStrategy() == StrategyManual {
		return Selection{Backends: []string{settings.PreferredBackend()}, Mode: ModeManual}, nil
	}

	if len(configured) > 1 {
		candidates := make([]string, len(configured))
		for i, name := range configured {
			candidates[i] = ArmFor(settings, name, defaults)
		}
		state, err := p.store.Load(ctx)
		if err != nil {
			return Selection{}, fmt.Errorf("loading bandit state: %w", err)
		}
		arms := p.selector.SelectArms(state, candidates, limit)
		backends := make([]string, len(arms))
		for i, arm := range arms {
			backends[i] = BackendOf(arm)
		}
		return Selection{Backends: backends, Arms: arms, Mode: ModeBandit}, nil
	}

	return Selection{
		Backends: p.selector.SelectRaceProviders(configured, settings.PreferredBackend(), limit),
		Mode:     ModeRandomRace,
	}, nil
}

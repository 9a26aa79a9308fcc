// Package dispatch turns one prompt into a raced generation: it picks
// backends with the bandit policy, races them, and wires the post-race
// learning and auto-blacklisting.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vovanmozg/coge/backend"
	"github.com/vovanmozg/coge/bandit"
	"github.com/vovanmozg/coge/race"
)

// ErrNoBackend is returned when nothing is configured and no preferred
// backend is set.
var ErrNoBackend = errors.New("no backend configured; set an API key such as COGE_GROQ_API_KEY")

// Factory builds backends by id.
type Factory interface {
	Configured() []string
	DefaultModels() map[string]string
	New(ctx context.Context, name, model string) (backend.Backend, error)
}

// Settings is the configuration a dispatch reads. Model blacklists are not
// part of it: a backend whose model is blacklisted still races.
type Settings interface {
	bandit.Settings
	MaxParticipants() int
}

// Blacklister persists a model blacklist entry, reporting whether it was new.
type Blacklister interface {
	AddBlacklist(backend, model string) (bool, error)
}

// Options configures a Dispatcher.
type Options struct {
	Factory  Factory
	Policy   *bandit.Policy
	Recorder *bandit.Recorder
	// Blacklist may be nil to disable auto-blacklisting.
	Blacklist Blacklister
	// Classify reports whether an error message means the model is gone.
	// Defaults to backend.IsModelUnavailable.
	Classify         func(msg string) bool
	StragglerTimeout time.Duration
	Metrics          *race.Metrics
}

// Dispatcher runs generations. It is not safe for concurrent use because the
// bandit selector's random streams are not.
type Dispatcher struct {
	factory   Factory
	policy    *bandit.Policy
	recorder  *bandit.Recorder
	blacklist Blacklister
	classify  func(string) bool
	coord     *race.Coordinator
}

// New creates a Dispatcher and installs its settle hooks.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		factory:   opts.Factory,
		policy:    opts.Policy,
		recorder:  opts.Recorder,
		blacklist: opts.Blacklist,
		classify:  opts.Classify,
	}
	if d.classify == nil {
		d.classify = backend.IsModelUnavailable
	}
	d.coord = &race.Coordinator{
		StragglerTimeout: opts.StragglerTimeout,
		Metrics:          opts.Metrics,
		Hooks:            []race.SettleHook{d.learn, d.autoBlacklist},
	}
	return d
}

// Result is a resolved generation. Race keeps settling after Generate
// returns; wait on it before exiting so learning is persisted.
type Result struct {
	race.Winner
	Selection bandit.Selection
	Race      *race.Race
}

// Generate races the selected backends and returns the first success. On
// total failure the error is a *race.Error and Result.Race is still set.
func (d *Dispatcher) Generate(ctx context.Context, settings Settings, system, user string) (*Result, error) {
	defaults := d.factory.DefaultModels()

	sel, err := d.policy.PickProviders(ctx, settings, d.factory.Configured(), defaults, settings.MaxParticipants())
	if err != nil {
		return nil, err
	}
	if len(sel.Backends) == 0 {
		preferred := settings.PreferredBackend()
		if preferred == "" {
			return nil, ErrNoBackend
		}
		sel = bandit.Selection{Backends: []string{preferred}, Mode: bandit.ModeManual}
	}
	logrus.WithFields(logrus.Fields{"mode": sel.Mode, "backends": sel.Backends}).Debug("backends selected")
	if sel.Arms != nil {
		logrus.Debugf("bandit arms: %s", strings.Join(sel.Arms, ", "))
	}

	participants := make([]race.Participant, len(sel.Backends))
	for i, name := range sel.Backends {
		arm := bandit.ArmFor(settings, name, defaults)
		if sel.Arms != nil {
			arm = sel.Arms[i]
		}
		participants[i] = race.Participant{
			Name:      name,
			Arm:       arm,
			Generator: d.build(ctx, settings, name, defaults),
		}
	}

	r, err := d.coord.Start(ctx, participants, system, user)
	if err != nil {
		return nil, err
	}
	res := &Result{Selection: sel, Race: r}
	w, err := r.Winner(ctx)
	if err != nil {
		return res, err
	}
	res.Winner = w
	return res, nil
}

func (d *Dispatcher) build(ctx context.Context, settings Settings, name string, defaults map[string]string) race.Generator {
	model := bandit.ModelFor(settings, name, defaults)
	if model == bandit.UnknownModel {
		model = ""
	}
	b, err := d.factory.New(ctx, name, model)
	if err != nil {
		return failed{err: err}
	}
	return b
}

// failed stands in for a backend that could not be constructed, so the
// failure is raced and learned like any other.
type failed struct{ err error }

func (f failed) Generate(context.Context, string, string) (string, error) {
	return "", f.err
}

// learn folds every outcome of a multi-participant race into the bandit.
func (d *Dispatcher) learn(ctx context.Context, raceID string, outcomes []race.Outcome) {
	if d.recorder == nil || len(outcomes) < 2 {
		return
	}
	obs := make([]bandit.Observation, 0, len(outcomes))
	for _, o := range outcomes {
		obs = append(obs, bandit.Observation{
			Arm:       o.Arm,
			LatencyMs: float64(o.Latency.Microseconds()) / 1000,
			Success:   o.Success,
		})
	}
	if err := d.recorder.Record(ctx, obs); err != nil {
		logrus.WithField("race", raceID).Warnf("bandit update failed: %v", err)
	}
}

// autoBlacklist blacklists the model of every backend that failed because
// its model is unavailable.
func (d *Dispatcher) autoBlacklist(_ context.Context, raceID string, outcomes []race.Outcome) {
	if d.blacklist == nil {
		return
	}
	for _, o := range outcomes {
		if o.Success || o.Err == nil || !d.classify(o.Err.Error()) {
			continue
		}
		_, model, _ := strings.Cut(o.Arm, ":")
		if model == "" || model == bandit.UnknownModel {
			continue
		}
		added, err := d.blacklist.AddBlacklist(o.Backend, model)
		if err != nil {
			logrus.WithField("race", raceID).Warnf("auto-blacklist of %s:%s failed: %v", o.Backend, model, err)
			continue
		}
		if added {
			logrus.Warnf("auto-blacklisted %s:%s (%v)", o.Backend, model, o.Err)
		}
	}
}

// Package stats counts what the user did with each generated command, per
// backend+model arm, and renders the totals as a table.
package stats

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Action is what the user did with a generated command.
type Action string

const (
	ActionExecute Action = "execute"
	ActionCopy    Action = "copy"
	ActionCancel  Action = "cancel"
)

// ValidActions is the set of recognized actions.
var ValidActions = map[Action]bool{ActionExecute: true, ActionCopy: true, ActionCancel: true}

// ParseAction converts a name to an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !ValidActions[a] {
		return "", fmt.Errorf("unknown action %q; valid: execute, copy, cancel", s)
	}
	return a, nil
}

// Entry holds the action counters of one arm.
type Entry struct {
	Execute  int       `json:"execute"`
	Copy     int       `json:"copy"`
	Cancel   int       `json:"cancel"`
	LastUsed time.Time `json:"last_used,omitzero"`
}

// Total is the number of recorded actions.
func (e Entry) Total() int {
	return e.Execute + e.Copy + e.Cancel
}

// AcceptPercent is the rounded share of actions that kept the command
// (execute or copy), 0 when nothing was recorded.
func (e Entry) AcceptPercent() int {
	total := e.Total()
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(e.Execute+e.Copy) / float64(total) * 100))
}

// Stats maps arm keys to their counters.
type Stats map[string]*Entry

// Store loads and saves the whole Stats document. Load returns empty Stats
// when nothing has been persisted yet.
type Store interface {
	Load(ctx context.Context) (Stats, error)
	Save(ctx context.Context, stats Stats) error
}

// Recorder records user actions into a Store.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time stamped into LastUsed. Intended for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Load returns the stored stats.
func (r *Recorder) Load(ctx context.Context) (Stats, error) {
	s, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading usage stats: %w", err)
	}
	return s, nil
}

// RecordAction increments the counter of action for arm and saves.
func (r *Recorder) RecordAction(ctx context.Context, arm string, action Action) error {
	if !ValidActions[action] {
		return fmt.Errorf("unknown action %q", action)
	}
	s, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		s = Stats{}
	}
	e, ok := s[arm]
	if !ok || e == nil {
		e = &Entry{}
		s[arm] = e
	}
	switch action {
	case ActionExecute:
		e.Execute++
	case ActionCopy:
		e.Copy++
	case ActionCancel:
		e.Cancel++
	}
	e.LastUsed = r.now()
	if err := r.store.Save(ctx, s); err != nil {
		return fmt.Errorf("saving usage stats: %w", err)
	}
	return nil
}

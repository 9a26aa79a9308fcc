package race

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultStragglerTimeout bounds losing calls when no timeout is configured.
const DefaultStragglerTimeout = 30 * time.Second

// Generator produces text for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Participant is one backend entered into a race.
type Participant struct {
	Name      string
	Arm       string // bandit arm key the outcome is learned under; may be empty
	Generator Generator
}

// Outcome is the settled result of one participant's call.
type Outcome struct {
	Backend string
	Arm     string
	Text    string // trimmed; set only on success
	Latency time.Duration
	Success bool
	Err     error
}

// Winner is the first successful outcome of a race.
type Winner struct {
	Backend string
	Arm     string
	Text    string
	Latency time.Duration
}

// SettleHook runs once per race after every call has settled. outcomes is a
// copy the hook may keep or modify. Hooks must not block indefinitely.
type SettleHook func(ctx context.Context, raceID string, outcomes []Outcome)

// Coordinator starts races. The zero value is usable: calls are unbounded,
// no hooks run and no metrics are recorded.
type Coordinator struct {
	// StragglerTimeout cancels calls still running after this long. Zero
	// means calls are never cut off.
	StragglerTimeout time.Duration
	Hooks            []SettleHook
	Metrics          *Metrics
}

// Race is one running race. All methods are safe for concurrent use.
type Race struct {
	id           string
	participants int

	decided chan struct{} // closed once winner or err is set
	winner  Winner
	err     error

	done     chan struct{} // closed after every call settled and hooks ran
	outcomes []Outcome
}

// Start launches every participant concurrently and returns without waiting.
func (c *Coordinator) Start(ctx context.Context, participants []Participant, system, user string) (*Race, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	r := &Race{
		id:           uuid.NewString(),
		participants: len(participants),
		decided:      make(chan struct{}),
		done:         make(chan struct{}),
	}

	detached := context.WithoutCancel(ctx)
	callCtx, cancel := detached, context.CancelFunc(func() {})
	if c.StragglerTimeout > 0 {
		callCtx, cancel = context.WithTimeout(detached, c.StragglerTimeout)
	}

	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.Name
	}
	logrus.WithFields(logrus.Fields{"race": r.id, "backends": names}).Debug("race started")

	// Buffered to the participant count so no sender ever blocks.
	results := make(chan Outcome, len(participants))
	for _, p := range participants {
		go func() {
			results <- c.call(callCtx, r.id, p, system, user)
		}()
	}

	go func() {
		defer close(r.done)
		c.collect(r, results)
		cancel()
		for _, hook := range c.Hooks {
			hook(detached, r.id, slices.Clone(r.outcomes))
		}
	}()

	return r, nil
}

// collect drains every outcome, deciding the race on the first success.
func (c *Coordinator) collect(r *Race, results <-chan Outcome) {
	decided := false
	for range r.participants {
		o := <-results
		r.outcomes = append(r.outcomes, o)
		c.Metrics.RecordCall(o)
		if o.Success && !decided {
			decided = true
			r.winner = Winner{Backend: o.Backend, Arm: o.Arm, Text: o.Text, Latency: o.Latency}
			c.Metrics.RecordWin(o.Backend)
			logrus.WithFields(logrus.Fields{
				"race":       r.id,
				"backend":    o.Backend,
				"latency_ms": o.Latency.Milliseconds(),
			}).Debug("race won")
			close(r.decided)
		}
	}
	if !decided {
		r.err = &Error{Failures: slices.Clone(r.outcomes)}
		c.Metrics.RecordFailedRace()
		close(r.decided)
	}
	logrus.WithFields(logrus.Fields{"race": r.id, "calls": len(r.outcomes)}).Debug("race settled")
}

func (c *Coordinator) call(ctx context.Context, raceID string, p Participant, system, user string) Outcome {
	o := Outcome{Backend: p.Name, Arm: p.Arm}

	start := time.Now()
	text, err := p.Generator.Generate(ctx, system, user)
	o.Latency = time.Since(start)

	text = strings.TrimSpace(text)
	switch {
	case err != nil:
		o.Err = err
	case text == "":
		o.Err = fmt.Errorf("%w from %s", ErrEmptyResult, p.Name)
	default:
		o.Success = true
		o.Text = text
	}

	entry := logrus.WithFields(logrus.Fields{
		"race":       raceID,
		"backend":    p.Name,
		"latency_ms": o.Latency.Milliseconds(),
	})
	if o.Success {
		entry.Debug("backend call succeeded")
	} else {
		entry.WithError(o.Err).Debug("backend call failed")
	}
	return o
}

// ID returns the race's unique id, used in log fields.
func (r *Race) ID() string {
	return r.id
}

// Winner blocks until the first successful call or until every call failed.
// If every call failed the error is a *Error. If ctx ends first, ctx.Err() is
// returned and the calls keep running.
func (r *Race) Winner(ctx context.Context) (Winner, error) {
	select {
	case <-r.decided:
		return r.winner, r.err
	case <-ctx.Done():
		return Winner{}, ctx.Err()
	}
}

// Done is closed after every call settled and the settle hooks returned.
func (r *Race) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until Done is closed or ctx ends.
func (r *Race) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outcomes blocks until the race settled and returns every outcome in the
// order the calls finished.
func (r *Race) Outcomes() []Outcome {
	<-r.done
	return slices.Clone(r.outcomes)
}

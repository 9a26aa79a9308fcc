package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vovanmozg/coge/bandit"
	"github.com/vovanmozg/coge/race"
)

// Probe is the result of testing one backend.
type Probe struct {
	Backend string
	Model   string
	Text    string
	Latency time.Duration
	Err     error
}

func (p Probe) String() string {
	return fmt.Sprintf("%s (%s)", p.Backend, p.Model)
}

// ProbeAll sends prompt to every configured backend concurrently and
// returns one Probe per backend in configured order. Nothing is learned.
func (d *Dispatcher) ProbeAll(ctx context.Context, settings Settings, system, prompt string) []Probe {
	defaults := d.factory.DefaultModels()
	names := d.factory.Configured()
	probes := make([]Probe, len(names))

	var g errgroup.Group
	for i, name := range names {
		probes[i] = Probe{Backend: name, Model: bandit.ModelFor(settings, name, defaults)}
		gen := d.build(ctx, settings, name, defaults)
		g.Go(func() error {
			p := &probes[i]
			start := time.Now()
			text, err := gen.Generate(ctx, system, prompt)
			p.Latency = time.Since(start)
			p.Text = strings.TrimSpace(text)
			p.Err = err
			if err == nil && p.Text == "" {
				p.Err = fmt.Errorf("%w from %s", race.ErrEmptyResult, name)
			}
			return nil
		})
	}
	_ = g.Wait()
	return probes
}

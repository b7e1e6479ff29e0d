// Package migrate upgrades snapshots saved by older document versions.
//
// A Migrator is a plain function. Chain orders version-gated steps; Rules
// applies declarative field edits whose values are computed by an Evaluator.
package migrate

import (
	"fmt"

	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"github.com/goliatone/go-localhtml/pkg/version"
)

// Migrator converts a snapshot produced by an older document version into one
// the current version understands. It receives the raw imported snapshot and
// must not retain it.
type Migrator func(snapshot.Snapshot) (snapshot.Snapshot, error)

// Step is one migration applied to snapshots older than Target.
type Step struct {
	Name    string
	Target  string
	Migrate Migrator
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithLogger attaches a logger to the chain.
func WithLogger(logger logging.Logger) ChainOption {
	return func(c *Chain) {
		c.log.Logger = logger
	}
}

// Chain applies steps in order. A step runs when the version reached so far
// is older than its target; after it runs the reached version becomes the
// target. The stamped sheetVersion is never rewritten.
type Chain struct {
	steps []Step
	log   logging.Component
}

// NewChain returns a chain running steps in the given order.
func NewChain(steps []Step, opts ...ChainOption) (*Chain, error) {
	c := &Chain{log: logging.Component{Name: "migrate"}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	for _, step := range steps {
		if err := c.Add(step); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends step.
func (c *Chain) Add(step Step) error {
	if step.Migrate == nil {
		return fmt.Errorf("migrate: step %q has no migrator", step.Name)
	}
	if step.Target == "" {
		return fmt.Errorf("migrate: step %q has no target version", step.Name)
	}
	c.steps = append(c.steps, step)
	return nil
}

// Steps returns the configured steps.
func (c *Chain) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Migrate runs every applicable step. The input is not modified.
func (c *Chain) Migrate(in snapshot.Snapshot) (snapshot.Snapshot, error) {
	current := snapshot.Clone(in)
	if current == nil {
		current = snapshot.Snapshot{}
	}
	reached := version.Of(current)
	for _, step := range c.steps {
		if !version.IsOlder(reached, step.Target) {
			continue
		}
		next, err := step.Migrate(current)
		if err != nil {
			return nil, fmt.Errorf("migrate: step %q to %s: %w", step.Name, step.Target, err)
		}
		if next == nil {
			next = snapshot.Snapshot{}
		}
		c.log.Debug("applied step", map[string]any{"step": step.Name, "from": reached, "to": step.Target})
		current = next
		reached = step.Target
	}
	return current, nil
}

// Migrator returns c as a Migrator.
func (c *Chain) Migrator() Migrator {
	return c.Migrate
}

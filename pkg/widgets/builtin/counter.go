package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// CounterState is the persisted counter.
type CounterState struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
}

// Older documents stored the raw input values, which are strings.
var counterDecoder = hydrate.NewDecoder(
	hydrate.WithPreHook[CounterState](coerceInts("current", "limit")),
)

// Counter tracks a value against an optional limit.
type Counter struct {
	*base
	state CounterState
}

func newCounter(cfg widgets.Config) (widgets.Widget, error) {
	state, err := counterDecoder.Decode(hydrate.Context{Kind: cfg.Kind, ID: cfg.ID}, cfg.ContentData)
	if err != nil {
		return nil, err
	}
	return &Counter{base: newBase(cfg), state: state}, nil
}

// State returns the current value and limit.
func (c *Counter) State() CounterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetCurrent sets the value, clamped to [0, limit] when a limit is set.
func (c *Counter) SetCurrent(n int) {
	c.mu.Lock()
	c.state.Current = clampCounter(n, c.state.Limit)
	c.mu.Unlock()
	c.changed()
}

// SetLimit sets the limit and lowers the value if it now exceeds it.
func (c *Counter) SetLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	c.mu.Lock()
	c.state.Limit = limit
	c.state.Current = clampCounter(c.state.Current, limit)
	c.mu.Unlock()
	c.changed()
}

func (c *Counter) ContentData() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return encode(c.log, c.state)
}

func clampCounter(n, limit int) int {
	if n < 0 {
		return 0
	}
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

func coerceInts(keys ...string) hydrate.PreHook {
	return func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
		for _, key := range keys {
			raw, ok := payload[key].(string)
			if !ok {
				continue
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				payload[key] = 0
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			payload[key] = n
		}
		return payload, nil
	}
}

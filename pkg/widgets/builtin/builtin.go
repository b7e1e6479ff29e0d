// Package builtin provides the stock widget kinds: notepad, calculator,
// formula, dicebox, counter, stopwatch and browser.
package builtin

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/richtext"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// Kind names.
const (
	KindNotepad    = "notepad"
	KindCalculator = "calculator"
	KindFormula    = "formula"
	KindDicebox    = "dicebox"
	KindCounter    = "counter"
	KindStopwatch  = "stopwatch"
	KindBrowser    = widgets.KindBrowser
)

// Option configures the built-in constructors.
type Option func(*settings)

type settings struct {
	editor   richtext.Editor
	rng      *rand.Rand
	interval time.Duration
}

// WithEditor mounts notepad widgets in editor. Without one the notepad keeps
// its content as opaque data.
func WithEditor(editor richtext.Editor) Option {
	return func(s *settings) {
		s.editor = editor
	}
}

// WithRand sets the random source used by dice rolls.
func WithRand(rng *rand.Rand) Option {
	return func(s *settings) {
		s.rng = rng
	}
}

// WithTickInterval sets the stopwatch tick period. Defaults to one second.
func WithTickInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Register adds every built-in kind to registry.
func Register(registry *widgets.Registry, opts ...Option) error {
	s := &settings{interval: time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	kinds := []struct {
		kind, name string
		ctor       widgets.Constructor
	}{
		{KindNotepad, "Notepad", s.newNotepad},
		{KindCalculator, "Calculator", newCalculator},
		{KindFormula, "Formula", s.newFormula},
		{KindDicebox, "Dice Box", s.newDicebox},
		{KindCounter, "Counter", newCounter},
		{KindStopwatch, "Stopwatch", s.newStopwatch},
		{KindBrowser, "Browser", newBrowser},
	}
	for _, k := range kinds {
		if err := registry.Register(k.kind, k.name, k.ctor); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding every built-in kind.
func NewRegistry(opts ...Option) *widgets.Registry {
	registry := widgets.NewRegistry()
	if err := Register(registry, opts...); err != nil {
		// Only duplicates can fail and the registry is fresh.
		panic(err)
	}
	return registry
}

func (s *settings) intn(n int) int {
	if s.rng != nil {
		return s.rng.IntN(n)
	}
	return rand.IntN(n)
}

// base carries the identity and lifecycle flags every widget shares.
type base struct {
	mu        sync.Mutex
	id        string
	kind      string
	name      string
	log       logging.Component
	notify    func()
	container widgets.Container
	rendered  bool
	destroyed bool
}

func newBase(cfg widgets.Config) *base {
	return &base{
		id:     cfg.ID,
		kind:   cfg.Kind,
		name:   cfg.DisplayName,
		log:    logging.Component{Name: "widgets." + cfg.Kind, Logger: cfg.Logger},
		notify: cfg.Changed,
	}
}

func (b *base) ID() string          { return b.id }
func (b *base) Kind() string        { return b.kind }
func (b *base) DisplayName() string { return b.name }

func (b *base) Render(c widgets.Container) error {
	b.mu.Lock()
	b.container = c
	b.rendered = true
	b.mu.Unlock()
	return nil
}

func (b *base) Destroy() {
	b.mu.Lock()
	b.destroyed = true
	b.mu.Unlock()
}

// Destroyed reports whether Destroy ran.
func (b *base) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

func (b *base) changed() {
	if b.notify != nil {
		b.notify()
	}
}

func encode(log logging.Component, state any) any {
	out, err := hydrate.Encode(state)
	if err != nil {
		log.Error("encode content", nil, err)
		return map[string]any{}
	}
	return out
}

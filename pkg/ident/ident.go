// Package ident generates short identifiers for pages and widgets.
//
// Identifiers handed out by a Generator are never handed out again by the
// same Generator, even after the owning page or widget is deleted.
package ident

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// PagePrefix prefixes identifiers of user-added pages.
	PagePrefix = "longinfo_Extra_"
	// WidgetPrefix prefixes identifiers of widgets.
	WidgetPrefix = "widget_"
	// DefaultLength is the number of random characters after the prefix.
	DefaultLength = 8

	alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	maxAttempts = 64
)

// Generator produces identifiers.
type Generator interface {
	Next() string
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() string

// Next implements Generator.
func (f GeneratorFunc) Next() string {
	return f()
}

// Option configures a Random generator.
type Option func(*Random)

// WithLength sets the number of random characters.
func WithLength(n int) Option {
	return func(r *Random) {
		if n > 0 {
			r.length = n
		}
	}
}

// WithSource replaces the random source, mainly for deterministic tests.
func WithSource(src rand.Source) Option {
	return func(r *Random) {
		if src != nil {
			r.rng = rand.New(src)
		}
	}
}

// Random returns prefix + n base36 characters and remembers every value it
// issued so no identifier is produced twice.
type Random struct {
	mu     sync.Mutex
	prefix string
	length int
	rng    *rand.Rand
	issued map[string]struct{}
}

// NewRandom builds a Random generator for prefix.
func NewRandom(prefix string, opts ...Option) *Random {
	r := &Random{
		prefix: prefix,
		length: DefaultLength,
		issued: map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// NewPageGenerator returns the default generator for extra pages.
func NewPageGenerator(opts ...Option) *Random {
	return NewRandom(PagePrefix, opts...)
}

// NewWidgetGenerator returns the default generator for widgets.
func NewWidgetGenerator(opts ...Option) *Random {
	return NewRandom(WidgetPrefix, opts...)
}

// Next implements Generator.
func (r *Random) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; ; attempt++ {
		length := r.length
		// Widen the suffix when the space looks exhausted.
		if attempt >= maxAttempts {
			length += attempt / maxAttempts
		}
		id := r.prefix + r.randomString(length)
		if _, seen := r.issued[id]; seen {
			continue
		}
		r.issued[id] = struct{}{}
		return id
	}
}

// Reserve marks ids as issued, typically after restoring a snapshot whose
// identifiers were generated by an earlier session.
func (r *Random) Reserve(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			r.issued[id] = struct{}{}
		}
	}
}

func (r *Random) randomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		var idx int
		if r.rng != nil {
			idx = r.rng.IntN(len(alphabet))
		} else {
			idx = rand.IntN(len(alphabet))
		}
		b.WriteByte(alphabet[idx])
	}
	return b.String()
}

// UUID returns a Generator producing prefix + a random UUID.
func UUID(prefix string) Generator {
	return GeneratorFunc(func() string {
		return prefix + uuid.NewString()
	})
}

// Reserver is implemented by generators that can be told about identifiers
// issued elsewhere.
type Reserver interface {
	Reserve(ids ...string)
}

// Reserve forwards ids to g when it implements Reserver.
func Reserve(g Generator, ids ...string) {
	if r, ok := g.(Reserver); ok {
		r.Reserve(ids...)
	}
}

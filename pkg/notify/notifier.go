// Package notify rate limits document change notifications.
//
// A Notifier invokes its action on the leading edge of a burst and then at
// most once more when the cooldown ends, however many changes arrived while
// it was cooling down:
//
//	idle --Notify--> action, coolingDown
//	coolingDown --Notify--> coolingDownPending
//	coolingDown --timer--> idle
//	coolingDownPending --timer--> action, coolingDown (window restarts)
package notify

import (
	"sync"
	"time"

	"github.com/goliatone/go-localhtml/pkg/logging"
)

// DefaultCooldown matches the autosave cadence of the hosted document.
const DefaultCooldown = time.Second

// State is the notifier's current phase.
type State int

const (
	Idle State = iota
	CoolingDown
	CoolingDownPending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CoolingDown:
		return "coolingDown"
	case CoolingDownPending:
		return "coolingDownPending"
	default:
		return "unknown"
	}
}

// Timer is the subset of *time.Timer the notifier relies on.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock injects the clock used for the cooldown timer.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(n *Notifier) {
		if d >= 0 {
			n.cooldown = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(n *Notifier) {
		n.log = logging.Component{Name: "notify", Logger: logger}
	}
}

// Notifier coalesces bursts of change signals.
type Notifier struct {
	mu       sync.Mutex
	clock    Clock
	cooldown time.Duration
	action   func()
	state    State
	timer    Timer
	gen      uint64
	log      logging.Component
}

// New builds a Notifier that calls action.
func New(action func(), opts ...Option) *Notifier {
	n := &Notifier{
		clock:    RealClock(),
		cooldown: DefaultCooldown,
		action:   action,
		log:      logging.Component{Name: "notify"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// SetAction replaces the action and cooldown and returns to idle. Any pending
// trailing call is dropped.
func (n *Notifier) SetAction(action func(), cooldown time.Duration) {
	n.mu.Lock()
	n.stopLocked()
	n.action = action
	if cooldown >= 0 {
		n.cooldown = cooldown
	}
	n.mu.Unlock()
}

// Notify signals that the document changed.
func (n *Notifier) Notify() {
	n.mu.Lock()
	switch n.state {
	case Idle:
		n.state = CoolingDown
		n.scheduleLocked()
		action := n.action
		n.mu.Unlock()
		n.invoke(action)
		return
	case CoolingDown:
		n.state = CoolingDownPending
	case CoolingDownPending:
	}
	n.mu.Unlock()
}

// State reports the current phase.
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Stop cancels the outstanding timer and drops any pending trailing call.
func (n *Notifier) Stop() {
	n.mu.Lock()
	n.stopLocked()
	n.mu.Unlock()
}

func (n *Notifier) stopLocked() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	n.state = Idle
}

func (n *Notifier) scheduleLocked() {
	n.gen++
	gen := n.gen
	n.timer = n.clock.AfterFunc(n.cooldown, func() { n.expire(gen) })
}

func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen {
		// Superseded by Stop or SetAction.
		n.mu.Unlock()
		return
	}
	n.timer = nil
	if n.state != CoolingDownPending {
		n.state = Idle
		n.mu.Unlock()
		return
	}
	n.state = CoolingDown
	n.scheduleLocked()
	action := n.action
	n.mu.Unlock()
	n.invoke(action)
}

func (n *Notifier) invoke(action func()) {
	if action == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("change action panicked", map[string]any{"panic": r}, nil)
		}
	}()
	action()
}

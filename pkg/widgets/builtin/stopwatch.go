package builtin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-localhtml/internal/hydrate"
	"github.com/goliatone/go-localhtml/pkg/widgets"
)

// StopwatchState is the persisted stopwatch.
type StopwatchState struct {
	Elapsed  int  `json:"elapsed"`
	Alarm    int  `json:"alarm"`
	AlarmSet bool `json:"alarmSet"`
}

var stopwatchDecoder = hydrate.NewDecoder(
	hydrate.WithPreHook[StopwatchState](coerceInts("elapsed", "alarm")),
)

// Stopwatch counts seconds while running and raises an alarm at a set time.
// The ticker it owns is stopped by Stop, Reset and Destroy.
type Stopwatch struct {
	*base
	interval time.Duration
	state    StopwatchState
	ticker   *time.Ticker
	done     chan struct{}
	ringing  bool
}

func (s *settings) newStopwatch(cfg widgets.Config) (widgets.Widget, error) {
	state, err := stopwatchDecoder.Decode(hydrate.Context{Kind: cfg.Kind, ID: cfg.ID}, cfg.ContentData)
	if err != nil {
		return nil, err
	}
	return &Stopwatch{base: newBase(cfg), interval: s.interval, state: state}, nil
}

// Start begins ticking. It is a no-op when running or destroyed.
func (w *Stopwatch) Start() {
	w.mu.Lock()
	if w.ticker != nil || w.destroyed {
		w.mu.Unlock()
		return
	}
	ticker := time.NewTicker(w.interval)
	done := make(chan struct{})
	w.ticker, w.done = ticker, done
	w.mu.Unlock()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				w.Tick()
			}
		}
	}()
}

// Stop pauses the stopwatch.
func (w *Stopwatch) Stop() {
	w.mu.Lock()
	w.stopLocked()
	w.mu.Unlock()
}

// Toggle starts a paused stopwatch or pauses a running one.
func (w *Stopwatch) Toggle() {
	if w.Running() {
		w.Stop()
		return
	}
	w.Start()
}

// Running reports whether the ticker is active.
func (w *Stopwatch) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ticker != nil
}

// Reset stops the stopwatch and zeroes the elapsed time.
func (w *Stopwatch) Reset() {
	w.mu.Lock()
	w.stopLocked()
	w.state.Elapsed = 0
	w.ringing = false
	w.mu.Unlock()
	w.changed()
}

// SetAlarm sets the alarm time in seconds and arms it.
func (w *Stopwatch) SetAlarm(seconds int) {
	w.mu.Lock()
	w.state.Alarm = max(seconds, 0)
	w.state.AlarmSet = true
	w.mu.Unlock()
	w.changed()
}

// ToggleAlarm arms or disarms the alarm.
func (w *Stopwatch) ToggleAlarm() {
	w.mu.Lock()
	w.state.AlarmSet = !w.state.AlarmSet
	w.mu.Unlock()
	w.changed()
}

// Tick advances the stopwatch by one second.
func (w *Stopwatch) Tick() {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.state.Elapsed++
	ring := w.state.AlarmSet && w.state.Elapsed == w.state.Alarm
	if ring {
		w.ringing = true
	}
	elapsed := w.state.Elapsed
	w.mu.Unlock()
	if ring {
		w.log.Info("alarm", map[string]any{"id": w.id, "elapsed": FormatSeconds(elapsed)})
	}
}

// Ringing reports whether the alarm went off since the last reset.
func (w *Stopwatch) Ringing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ringing
}

// Display renders "hh:mm:ss", followed by " / hh:mm:ss" when the alarm is set.
func (w *Stopwatch) Display() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := FormatSeconds(w.state.Elapsed)
	if w.state.AlarmSet {
		out += " / " + FormatSeconds(w.state.Alarm)
	}
	return out
}

func (w *Stopwatch) ContentData() any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return encode(w.log, w.state)
}

// Destroy stops the ticker synchronously.
func (w *Stopwatch) Destroy() {
	w.mu.Lock()
	w.stopLocked()
	w.destroyed = true
	w.mu.Unlock()
}

func (w *Stopwatch) stopLocked() {
	if w.ticker == nil {
		return
	}
	w.ticker.Stop()
	close(w.done)
	w.ticker, w.done = nil, nil
}

// FormatSeconds renders seconds as hh:mm:ss.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
}

// ParseSeconds reads "hh:mm:ss", "mm:ss" or "ss" into seconds.
func ParseSeconds(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("stopwatch: invalid time %q", s)
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("stopwatch: invalid time %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

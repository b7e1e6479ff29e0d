package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events that do not name one.
const DefaultChannel = "document"

// Config controls emission defaults.
type Config struct {
	Enabled  bool
	Channel  string
	Document string
	ActorID  string
}

// Emitter applies defaults and forwards events to hooks. A nil *Emitter is
// valid and emits nothing.
type Emitter struct {
	hooks    Hooks
	enabled  bool
	channel  string
	document string
	actorID  string
}

// NewEmitter constructs an Emitter.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	var kept Hooks
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{
		hooks:    kept,
		enabled:  cfg.Enabled && len(kept) > 0,
		channel:  channel,
		document: strings.TrimSpace(cfg.Document),
		actorID:  strings.TrimSpace(cfg.ActorID),
	}
}

// Enabled reports whether Emit does anything.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// SetDocument changes the document name stamped on events.
func (e *Emitter) SetDocument(name string) {
	if e != nil {
		e.document = strings.TrimSpace(name)
	}
}

// Emit forwards event after filling the channel, document and actor defaults.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.Document) == "" {
		event.Document = e.document
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	return e.hooks.Notify(ctx, event)
}

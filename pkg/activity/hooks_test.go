package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsAndClones(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " document.saved ",
		ActorID:    " actor ",
		ObjectType: " document ",
		ObjectID:   " sheet.html ",
		Channel:    " document ",
		Document:   " sheet.html ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)
	if got.Verb != "document.saved" || got.ObjectType != "document" || got.ObjectID != "sheet.html" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.Channel != "document" || got.Document != "sheet.html" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if meta["k"] != "v" {
		t.Fatalf("expected source metadata untouched")
	}
}

func TestHooksDropIncompleteEvents(t *testing.T) {
	capture := &CaptureHook{}
	if err := (Hooks{capture}).Notify(context.Background(), Event{Verb: "page.added"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(capture.Events))
	}
}

func TestHooksFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1, boom2 := errors.New("boom1"), errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, _ Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(context.Context, Event) error { return boom1 }),
		nil,
		HookFunc(func(context.Context, Event) error { return boom2 }),
	}

	//nolint:staticcheck // a nil context falls back to Background
	err := hooks.Notify(nil, Event{Verb: "page.added", ObjectType: "page", ObjectID: "p1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected non-nil context")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one captured event, got %d", len(capture.Events))
	}
}

func TestEmitterAppliesDefaults(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{})
	if disabled.Enabled() {
		t.Fatalf("expected disabled emitter")
	}
	_ = disabled.Emit(context.Background(), Event{Verb: "v", ObjectType: "o", ObjectID: "1"})
	if len(capture.Events) != 0 {
		t.Fatalf("disabled emitter should not emit")
	}

	var nilEmitter *Emitter
	if err := nilEmitter.Emit(context.Background(), Event{}); err != nil {
		t.Fatalf("nil emitter should be a no-op: %v", err)
	}

	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Document: "sheet.html", ActorID: "me"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := emitter.Emit(context.Background(), Event{Verb: "v", ObjectType: "o", ObjectID: "1", OccurredAt: at}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := capture.Events[0]
	if got.Channel != DefaultChannel || got.Document != "sheet.html" || got.ActorID != "me" {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if !got.OccurredAt.Equal(at) {
		t.Fatalf("expected timestamp preserved, got %v", got.OccurredAt)
	}

	emitter.SetDocument("other.html")
	_ = emitter.Emit(context.Background(), Event{Verb: "v", ObjectType: "o", ObjectID: "2", Channel: "custom"})
	if capture.Events[1].Channel != "custom" || capture.Events[1].Document != "other.html" {
		t.Fatalf("unexpected second event: %+v", capture.Events[1])
	}
}

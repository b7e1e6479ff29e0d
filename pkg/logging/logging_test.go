package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestComponentForwardsEvents(t *testing.T) {
	var got []Event
	c := Component{Name: "pages", Logger: LoggerFunc(func(e Event) { got = append(got, e) })}

	c.Info("page added", map[string]any{"id": "p1"})
	c.Warn("skipped", nil, errors.New("boom"))

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Component != "pages" || got[0].Level != LevelInfo || got[0].Fields["id"] != "p1" {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	if got[1].Err == nil || got[1].Level != LevelWarn {
		t.Fatalf("expected warn event with error, got %+v", got[1])
	}
	if got[0].Time.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestComponentWithoutLoggerIsSilent(t *testing.T) {
	c := Component{Name: "x"}
	c.Error("ignored", nil, errors.New("boom"))
}

func TestOrNopAndNilFunc(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected nop logger")
	}
	var fn LoggerFunc
	fn.Log(Event{Message: "noop"})
}

func TestSlogAdapterWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := Slog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Log(Event{Level: LevelWarn, Component: "widgets", Message: "disabled", Fields: map[string]any{"kind": "browser"}})

	out := buf.String()
	for _, want := range []string{"level=WARN", "component=widgets", "kind=browser", "msg=disabled"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
}

package state

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

func TestAutosaverSkipsUnchangedContent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	current := snapshot.Snapshot{"hp": 1.0}
	var logged []string
	saver, err := NewAutosaver(store, Ref{Document: "hero"},
		func() (snapshot.Snapshot, error) { return snapshot.Clone(current), nil },
		WithAutosaveLogger(logging.LoggerFunc(func(e logging.Event) { logged = append(logged, e.Message) })),
		WithExtra(map[string]string{"origin": "autosave"}),
	)
	if err != nil {
		t.Fatalf("new autosaver: %v", err)
	}

	if _, wrote, err := saver.Save(ctx); err != nil || !wrote {
		t.Fatalf("first save: %v %v", wrote, err)
	}
	if _, wrote, err := saver.Save(ctx); err != nil || wrote {
		t.Fatalf("unchanged save must be skipped: %v %v", wrote, err)
	}
	current["hp"] = 2.0
	meta, wrote, err := saver.Save(ctx)
	if err != nil || !wrote {
		t.Fatalf("changed save: %v %v", wrote, err)
	}
	if meta.Extra["origin"] != "autosave" || saver.Last().SnapshotID != meta.SnapshotID {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if history, _ := store.History(ctx, Ref{Document: "hero"}, 0); len(history) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(history))
	}
	if len(logged) != 3 || logged[0] != "saved" || logged[1] != "unchanged" {
		t.Fatalf("unexpected log %v", logged)
	}
}

func TestAutosaverRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ref := Ref{Document: "hero"}
	saved, _ := store.Save(ctx, ref, snapshot.Snapshot{"hp": 7.0}, Meta{})

	var applied snapshot.Snapshot
	saver, _ := NewAutosaver(store, ref, func() (snapshot.Snapshot, error) { return snapshot.Clone(applied), nil })
	ok, err := saver.Restore(ctx, func(s snapshot.Snapshot) error {
		applied = s
		return nil
	})
	if err != nil || !ok || applied["hp"] != 7.0 {
		t.Fatalf("restore: %v %v %v", ok, err, applied)
	}
	if saver.Last().SnapshotID != saved.SnapshotID {
		t.Fatalf("restore must remember the loaded revision")
	}
	if _, wrote, _ := saver.Save(ctx); wrote {
		t.Fatalf("saving restored content must be a no-op")
	}

	empty, _ := NewAutosaver(NewMemoryStore(), ref, func() (snapshot.Snapshot, error) { return nil, nil })
	if ok, err := empty.Restore(ctx, func(snapshot.Snapshot) error { return nil }); ok || err != nil {
		t.Fatalf("empty store restore: %v %v", ok, err)
	}
}

func TestAutosaverPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	saver, _ := NewAutosaver(NewMemoryStore(), Ref{Document: "hero"}, func() (snapshot.Snapshot, error) { return nil, boom })
	if _, _, err := saver.Save(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	if _, err := NewAutosaver(nil, Ref{Document: "x"}, func() (snapshot.Snapshot, error) { return nil, nil }); !errdefs.IsMissingRequiredField(err) {
		t.Fatalf("expected missing store error, got %v", err)
	}
}

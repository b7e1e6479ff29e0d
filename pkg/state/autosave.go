package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/logging"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

// Source produces the snapshot to persist.
type Source func() (snapshot.Snapshot, error)

// AutosaveOption configures an Autosaver.
type AutosaveOption func(*Autosaver)

// WithAutosaveLogger sets the logger used to report saves.
func WithAutosaveLogger(logger logging.Logger) AutosaveOption {
	return func(a *Autosaver) {
		a.log.Logger = logging.OrNop(logger)
	}
}

// WithExtra attaches metadata to every revision the Autosaver writes.
func WithExtra(extra map[string]string) AutosaveOption {
	return func(a *Autosaver) {
		a.extra = extra
	}
}

// Autosaver writes a new revision whenever the document content changed
// since the last one it saw.
type Autosaver struct {
	store  Store
	ref    Ref
	source Source
	extra  map[string]string
	log    logging.Component

	mu   sync.Mutex
	last Meta
}

func NewAutosaver(store Store, ref Ref, source Source, opts ...AutosaveOption) (*Autosaver, error) {
	if store == nil {
		return nil, &errdefs.MissingRequiredFieldError{Op: "autosave", Field: "store"}
	}
	if source == nil {
		return nil, &errdefs.MissingRequiredFieldError{Op: "autosave", Field: "source"}
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, err
	}
	a := &Autosaver{
		store:  store,
		ref:    ref,
		source: source,
		log:    logging.Component{Name: "autosave", Logger: logging.Nop()},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Save stores the current snapshot. It reports false when the content
// matches the last revision and nothing was written.
func (a *Autosaver) Save(ctx context.Context) (Meta, bool, error) {
	current, err := a.source()
	if err != nil {
		return Meta{}, false, fmt.Errorf("autosave: snapshot: %w", err)
	}
	tag, err := ETag(current)
	if err != nil {
		return Meta{}, false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last.ETag == tag {
		a.log.Debug("unchanged", map[string]any{"document": a.ref.Document, "etag": tag})
		return cloneMeta(a.last), false, nil
	}
	saved, err := a.store.Save(ctx, a.ref, current, Meta{ETag: a.last.ETag, Extra: a.extra})
	if err != nil {
		a.log.Error("save failed", map[string]any{"document": a.ref.Document}, err)
		return Meta{}, false, err
	}
	a.last = saved
	a.log.Info("saved", map[string]any{
		"document":    a.ref.Document,
		"snapshot_id": saved.SnapshotID,
		"version":     saved.Version,
	})
	return cloneMeta(saved), true, nil
}

// Restore loads the latest revision and hands it to apply. It reports false
// when the store holds no revision yet.
func (a *Autosaver) Restore(ctx context.Context, apply func(snapshot.Snapshot) error) (bool, error) {
	if apply == nil {
		return false, &errdefs.MissingRequiredFieldError{Op: "autosave", Field: "apply"}
	}
	loaded, meta, ok, err := a.store.Load(ctx, a.ref)
	if err != nil || !ok {
		return false, err
	}
	// apply may trigger a save of the content being restored.
	a.mu.Lock()
	previous := a.last
	a.last = meta
	a.mu.Unlock()
	if err := apply(loaded); err != nil {
		a.mu.Lock()
		a.last = previous
		a.mu.Unlock()
		return false, err
	}
	a.log.Info("restored", map[string]any{"document": a.ref.Document, "snapshot_id": meta.SnapshotID})
	return true, nil
}

// Last returns the metadata of the last revision written or restored.
func (a *Autosaver) Last() Meta {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneMeta(a.last)
}

package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
	"github.com/goliatone/go-localhtml/pkg/version"
	"github.com/google/uuid"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Ref identifies one document's revision history.
type Ref struct {
	Document string
}

// Identifier returns the storage key for r.
func (r Ref) Identifier() (string, error) {
	name := strings.TrimSpace(r.Document)
	if name == "" {
		return "", &errdefs.MissingRequiredFieldError{Op: "state", Field: "document"}
	}
	return "document/" + name, nil
}

// Meta is storage-owned metadata of one revision.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	Version    string            `json:"version,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store keeps the revision history of documents.
//
// Save appends a revision. When meta.ETag is set it must match the latest
// revision's ETag or Save fails with ErrETagMismatch. Load returns the latest
// revision; History lists revisions newest first.
type Store interface {
	Load(ctx context.Context, ref Ref) (s snapshot.Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, s snapshot.Snapshot, meta Meta) (Meta, error)
	Revision(ctx context.Context, ref Ref, snapshotID string) (snapshot.Snapshot, Meta, error)
	History(ctx context.Context, ref Ref, limit int) ([]Meta, error)
}

// Mutator edits a snapshot in place.
type Mutator func(snapshot.Snapshot) error

// Mutate loads the latest revision, applies fn and saves the result as a new
// revision. expected.ETag, when set, guards against concurrent writers.
func Mutate(ctx context.Context, store Store, ref Ref, expected Meta, fn Mutator) (snapshot.Snapshot, Meta, error) {
	if store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}
	current, loaded, ok, err := store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q: %w", ref.Document, err)
	}
	if !ok {
		current = snapshot.Snapshot{}
	}
	if expected.ETag != "" && loaded.ETag != "" && expected.ETag != loaded.ETag {
		return nil, loaded, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
	}
	current = snapshot.Clone(current)
	if err := fn(current); err != nil {
		return nil, loaded, err
	}
	saved, err := store.Save(ctx, ref, current, mergeMeta(loaded, expected))
	if err != nil {
		return nil, loaded, fmt.Errorf("state: save %q: %w", ref.Document, err)
	}
	return current, saved, nil
}

// ETag returns the content hash of s.
func ETag(s snapshot.Snapshot) (string, error) {
	payload, err := snapshot.Encode(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:16]), nil
}

// newRevision prepares the metadata of a revision about to be stored.
func newRevision(s snapshot.Snapshot, meta Meta, now time.Time) (Meta, []byte, error) {
	payload, err := snapshot.Encode(s)
	if err != nil {
		return Meta{}, nil, err
	}
	sum := sha256.Sum256(payload)
	out := cloneMeta(meta)
	out.SnapshotID = uuid.NewString()
	out.ETag = hex.EncodeToString(sum[:16])
	out.Version = version.Of(s)
	out.UpdatedAt = now.UTC()
	return out, payload, nil
}

func checkETag(expected, latest string) error {
	if expected != "" && latest != "" && expected != latest {
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected, latest)
	}
	return nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

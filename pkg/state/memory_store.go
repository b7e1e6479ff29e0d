package state

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-localhtml/pkg/errdefs"
	"github.com/goliatone/go-localhtml/pkg/snapshot"
)

// MemoryStore is an in-memory Store. Revisions are kept as encoded JSON so
// later edits to a saved snapshot do not leak into the history.
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	records map[string][]memoryRecord
}

type memoryRecord struct {
	payload []byte
	meta    Meta
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, records: map[string][]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (snapshot.Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}
	s.mu.RLock()
	revisions := s.records[key]
	s.mu.RUnlock()
	if len(revisions) == 0 {
		return nil, Meta{}, false, nil
	}
	latest := revisions[len(revisions)-1]
	out, err := snapshot.Decode(latest.payload, key)
	if err != nil {
		return nil, Meta{}, false, err
	}
	return out, cloneMeta(latest.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snap snapshot.Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	out, payload, err := newRevision(snap, meta, s.now())
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if revisions := s.records[key]; len(revisions) > 0 {
		if err := checkETag(meta.ETag, revisions[len(revisions)-1].meta.ETag); err != nil {
			return Meta{}, err
		}
	}
	s.records[key] = append(s.records[key], memoryRecord{payload: payload, meta: cloneMeta(out)})
	return out, nil
}

func (s *MemoryStore) Revision(_ context.Context, ref Ref, snapshotID string) (snapshot.Snapshot, Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records[key] {
		if record.meta.SnapshotID == snapshotID {
			out, err := snapshot.Decode(record.payload, key)
			if err != nil {
				return nil, Meta{}, err
			}
			return out, cloneMeta(record.meta), nil
		}
	}
	return nil, Meta{}, errdefs.ErrNotFound
}

func (s *MemoryStore) History(_ context.Context, ref Ref, limit int) ([]Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	revisions := s.records[key]
	out := make([]Meta, 0, len(revisions))
	for i := len(revisions) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneMeta(revisions[i].meta))
	}
	return out, nil
}

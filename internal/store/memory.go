package store

import (
	"context"
	"sort"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps encoded snapshots in process memory. Entries never expire.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, 0)}
}

// Save implements Store. The snapshot is encoded so later changes to state
// do not leak into the store.
func (s *MemoryStore) Save(_ context.Context, id string, state *snapshot.State) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	data, err := snapshot.Marshal(state, snapshot.FormatJSON)
	if err != nil {
		return err
	}
	s.items.Set(id, data, gocache.NoExpiration)
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) (*snapshot.State, error) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	return snapshot.Unmarshal(v.([]byte), snapshot.FormatJSON)
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if _, ok := s.items.Get(id); !ok {
		return errors.NewNotFoundError("session", id)
	}
	s.items.Delete(id)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	items := s.items.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.items.Flush()
	return nil
}

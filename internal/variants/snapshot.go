package variants

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotKey is the key the cache snapshot is stored under.
const SnapshotKey = "variants.cache.v1"

// SnapshotStore is a key-value store for the serialized cache snapshot.
// ReadSnapshot returns nil data and no error when nothing has been saved.
type SnapshotStore interface {
	ReadSnapshot(ctx context.Context, key string) ([]byte, error)
	WriteSnapshot(ctx context.Context, key string, data []byte) error
}

type snapshotEntry struct {
	Source    string    `json:"source"`
	Class     SizeClass `json:"class"`
	Ref       Ref       `json:"ref"`
	Format    string    `json:"format,omitempty"`
	Size      int64     `json:"size,omitempty"`
	CreatedAt int64     `json:"createdAt"` // unix millis, UTC
}

type snapshot struct {
	SavedAt int64           `json:"savedAt"`
	Entries []snapshotEntry `json:"entries"`
}

// SaveSnapshot writes the cache metadata to store and returns the number of
// entries written.
func (s *Service) SaveSnapshot(ctx context.Context, store SnapshotStore) (int, error) {
	entries := s.cache.Snapshot()

	snap := snapshot{
		SavedAt: s.opts.Clock().UnixMilli(),
		Entries: make([]snapshotEntry, 0, len(entries)),
	}
	for k, v := range entries {
		snap.Entries = append(snap.Entries, snapshotEntry{
			Source:    k.Source,
			Class:     k.Class,
			Ref:       v.Ref,
			Format:    v.Format,
			Size:      v.Size,
			CreatedAt: v.CreatedAt.UnixMilli(),
		})
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to encode cache snapshot: %w", err)
	}
	if err := store.WriteSnapshot(ctx, SnapshotKey, data); err != nil {
		return 0, fmt.Errorf("failed to write cache snapshot: %w", err)
	}

	log.Info("saved cache snapshot: %d variants", len(snap.Entries))
	return len(snap.Entries), nil
}

// LoadSnapshot restores cache entries from store. An entry is kept only if
// its key is valid, it has not expired, and its handle still exists in the
// blob store; everything else is dropped. It returns the number restored.
func (s *Service) LoadSnapshot(ctx context.Context, store SnapshotStore) (int, error) {
	data, err := store.ReadSnapshot(ctx, SnapshotKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache snapshot: %w", err)
	}
	if len(data) == 0 {
		return 0, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("failed to decode cache snapshot: %w", err)
	}

	now := s.opts.Clock()
	loaded, dropped := 0, 0
	for _, e := range snap.Entries {
		key, err := NewKey(e.Source, e.Class)
		if err != nil {
			dropped++
			continue
		}

		created := time.UnixMilli(e.CreatedAt)
		if now.Sub(created) > s.opts.MaxAge || !e.Ref.Revocable() || !s.store.Exists(e.Ref) {
			dropped++
			continue
		}

		s.cache.Put(key, CachedVariant{Ref: e.Ref, Size: e.Size, Format: e.Format, CreatedAt: created})
		loaded++
	}

	log.Info("loaded cache snapshot: %d restored, %d dropped", loaded, dropped)
	return loaded, nil
}

// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// snapshotKey derives the store key for one entity snapshot.
func snapshotKey(kind Kind, entityID string) string {
	return "questsync/entity/" + string(kind) + "/" + entityID
}

// Cache holds the merged, not-yet-synchronized local state per entity. It
// is both the optimistic read model for the UI and the payload source for
// enqueued actions. Entries are deleted only after the corresponding remote
// synchronization fully succeeds.
type Cache struct {
	store  Store
	logger *slog.Logger

	mu        sync.Mutex
	snapshots map[string]Snapshot
}

// NewCache creates an empty cache backed by the given store.
func NewCache(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:     store,
		logger:    logger,
		snapshots: make(map[string]Snapshot),
	}
}

// Restore loads persisted snapshots for every distinct entity referenced by
// the given queue contents. The queue is the key index: a key-value store
// cannot enumerate keys, and by the snapshot lifecycle an entity with no
// pending action has no snapshot either.
func (c *Cache) Restore(ctx context.Context, actions []PendingAction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		key := snapshotKey(a.Kind, a.EntityID)
		if seen[key] {
			continue
		}
		seen[key] = true

		data, err := c.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to load snapshot for %s/%s: %w", a.Kind, a.EntityID, err)
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("failed to decode snapshot for %s/%s: %w", a.Kind, a.EntityID, err)
		}
		c.snapshots[key] = snap
	}
	return nil
}

// Get returns a copy of the snapshot for the entity, if present.
func (c *Cache) Get(kind Kind, entityID string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snapshots[snapshotKey(kind, entityID)]
	if !ok {
		return Snapshot{}, false
	}
	snap.Fields = copyFields(snap.Fields)
	return snap, true
}

// Merge shallow-merges the partial update into the entity's snapshot,
// creating one if absent. Last write wins per field: new fields overwrite,
// unspecified fields persist. Returns the resulting snapshot.
func (c *Cache) Merge(ctx context.Context, kind Kind, entityID string, partial map[string]any) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := snapshotKey(kind, entityID)
	snap, ok := c.snapshots[key]
	if !ok {
		snap = Snapshot{
			Kind:     kind,
			EntityID: entityID,
			Fields:   make(map[string]any, len(partial)),
		}
	} else {
		snap.Fields = copyFields(snap.Fields)
	}
	for k, v := range partial {
		snap.Fields[k] = v
	}
	snap.LastUpdated = time.Now().UTC()
	c.snapshots[key] = snap

	c.persistLocked(ctx, key, snap)

	snap.Fields = copyFields(snap.Fields)
	return snap
}

// Delete removes the entity's snapshot from memory and the store. Called by
// the dispatcher once the entity has no pending actions left.
func (c *Cache) Delete(ctx context.Context, kind Kind, entityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := snapshotKey(kind, entityID)
	delete(c.snapshots, key)
	if err := c.store.Remove(ctx, key); err != nil {
		c.logger.Warn("failed to remove persisted snapshot", "key", key, "error", err)
	}
}

// Clear drops every snapshot. Explicit resets only.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.snapshots {
		if err := c.store.Remove(ctx, key); err != nil {
			c.logger.Warn("failed to remove persisted snapshot", "key", key, "error", err)
		}
		delete(c.snapshots, key)
	}
}

func (c *Cache) persistLocked(ctx context.Context, key string, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("failed to encode snapshot", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("failed to persist snapshot", "key", key, "error", err)
	}
}

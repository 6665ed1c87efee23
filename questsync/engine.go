// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Config holds configuration for the sync engine.
type Config struct {
	Store   Store        // required; durable persistence for queue and snapshots
	Monitor Monitor      // connectivity signal consumed by synchronizer preflight
	BaseURL string       // remote API root, e.g. "https://api.study-app.example"
	Token   TokenSource  // current bearer token lookup
	HTTP    *http.Client // optional; defaults to a 30s-timeout client
	Logger  *slog.Logger // optional; defaults to slog.Default()

	// Synchronizers overrides the built-in adapters. When empty, the
	// character, quest_progress and achievement synchronizers are
	// installed against BaseURL.
	Synchronizers []Synchronizer
}

// Engine owns the action queue and entity cache and exposes the
// enqueue/flush surface that domain code calls. Construct exactly one per
// process and inject it into collaborators; the queue and cache are never
// mutated from outside.
type Engine struct {
	queue  *Queue
	cache  *Cache
	syncs  map[Kind]Synchronizer
	logger *slog.Logger

	// Single-flight switch for Flush. CAS avoids the check-then-set race
	// a plain bool would have.
	flushing int32
}

// New creates the engine and restores any queue and snapshots persisted by
// a prior session.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("config.Store must be provided")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	queue, err := NewQueue(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to restore action queue: %w", err)
	}
	cache := NewCache(cfg.Store, logger)
	if err := cache.Restore(ctx, queue.List()); err != nil {
		return nil, fmt.Errorf("failed to restore entity cache: %w", err)
	}

	syncers := cfg.Synchronizers
	if len(syncers) == 0 {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("config.BaseURL must be provided when no synchronizers are given")
		}
		httpClient := cfg.HTTP
		if httpClient == nil {
			httpClient = &http.Client{Timeout: 30 * time.Second}
		}
		syncers = []Synchronizer{
			NewCharacterSynchronizer(cfg.BaseURL, httpClient, cfg.Token, cfg.Monitor),
			NewQuestProgressSynchronizer(cfg.BaseURL, httpClient, cfg.Token, cfg.Monitor),
			NewAchievementSynchronizer(cfg.BaseURL, httpClient, cfg.Token, cfg.Monitor),
		}
	}

	byKind := make(map[Kind]Synchronizer, len(syncers))
	for _, s := range syncers {
		byKind[s.Kind()] = s
	}

	return &Engine{
		queue:  queue,
		cache:  cache,
		syncs:  byKind,
		logger: logger,
	}, nil
}

// Enqueue merges the partial update into the entity's snapshot and durably
// appends an action carrying the merged payload. The snapshot is the
// optimistic read model; the action is what gets replayed remotely.
func (e *Engine) Enqueue(ctx context.Context, kind Kind, entityID string, partial map[string]any) (PendingAction, error) {
	if kind == "" {
		return PendingAction{}, fmt.Errorf("kind must be provided")
	}
	if entityID == "" {
		return PendingAction{}, fmt.Errorf("entityID must be provided")
	}
	if len(partial) == 0 {
		return PendingAction{}, fmt.Errorf("update must contain at least one field")
	}

	snap := e.cache.Merge(ctx, kind, entityID, partial)
	action := e.queue.Enqueue(ctx, kind, entityID, snap.Fields)
	e.logger.Debug("queued local update",
		"kind", kind, "entity", entityID, "action_id", action.ID, "pending", e.queue.Len())
	return action, nil
}

// Flush performs one pass over the queue in FIFO order. At most one flush
// runs at a time; overlapping calls return immediately without processing.
// Synchronizer failures never propagate: the action is retained for the
// next pass and the walk continues. Callers observe outcomes via List/Get.
func (e *Engine) Flush(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.flushing, 0, 1) {
		e.logger.Debug("flush already in progress, skipping")
		return nil
	}
	defer atomic.StoreInt32(&e.flushing, 0)

	actions := e.queue.List()
	if len(actions) == 0 {
		return nil
	}
	e.logger.Info("flushing pending actions", "count", len(actions))

	for _, action := range actions {
		syncer, ok := e.syncs[action.Kind]
		if !ok {
			e.logger.Warn("no synchronizer registered for kind, action retained",
				"kind", action.Kind, "action_id", action.ID)
			continue
		}

		if err := syncer.Apply(ctx, action.EntityID, action.Payload); err != nil {
			e.logger.Warn("sync failed, action retained for next flush",
				"kind", action.Kind, "entity", action.EntityID,
				"action_id", action.ID, "error", err)
			continue
		}

		e.queue.Remove(ctx, action.ID)
		if e.queue.PendingFor(action.Kind, action.EntityID) == 0 {
			e.cache.Delete(ctx, action.Kind, action.EntityID)
		}
		e.logger.Debug("action synchronized",
			"kind", action.Kind, "entity", action.EntityID, "action_id", action.ID)
	}
	return nil
}

// Get returns the merged pending snapshot for an entity, if any. Absent
// means the entity has no unsynchronized local state.
func (e *Engine) Get(kind Kind, entityID string) (Snapshot, bool) {
	return e.cache.Get(kind, entityID)
}

// List returns the queued actions in FIFO order, for diagnostics and UI
// display of pending sync state.
func (e *Engine) List() []PendingAction {
	return e.queue.List()
}

// PendingCount reports how many actions await synchronization.
func (e *Engine) PendingCount() int {
	return e.queue.Len()
}

// Reset drops the queue and every snapshot. Explicit resets only (sign-out,
// account switch); the normal sync flow never calls this.
func (e *Engine) Reset(ctx context.Context) {
	e.queue.Clear(ctx)
	e.cache.Clear(ctx)
	e.logger.Info("sync state reset")
}

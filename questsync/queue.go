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

	"github.com/google/uuid"
)

// queueKey is the well-known store key holding the whole queue as one
// ordered JSON array.
const queueKey = "questsync/queue"

// Queue is the append-only FIFO list of pending actions, backed by the
// durable store. The in-memory slice is authoritative for the current
// session; persistence failures degrade durability, not correctness, so
// they are logged and the operation still succeeds.
type Queue struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	actions []PendingAction
	nextSeq int64
}

// NewQueue loads any persisted queue from the store and resumes the
// sequence counter after the highest recovered record.
func NewQueue(ctx context.Context, store Store, logger *slog.Logger) (*Queue, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{store: store, logger: logger, nextSeq: 1}

	data, err := store.Get(ctx, queueKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return q, nil
		}
		return nil, fmt.Errorf("failed to load action queue: %w", err)
	}
	if err := json.Unmarshal(data, &q.actions); err != nil {
		return nil, fmt.Errorf("failed to decode action queue: %w", err)
	}
	for _, a := range q.actions {
		if a.Seq >= q.nextSeq {
			q.nextSeq = a.Seq + 1
		}
	}
	return q, nil
}

// Enqueue durably appends a new action at the tail and returns it.
func (q *Queue) Enqueue(ctx context.Context, kind Kind, entityID string, payload map[string]any) PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()

	action := PendingAction{
		ID:        uuid.New().String(),
		Seq:       q.nextSeq,
		Kind:      kind,
		EntityID:  entityID,
		Payload:   copyFields(payload),
		CreatedAt: time.Now().UTC(),
	}
	q.nextSeq++
	q.actions = append(q.actions, action)
	q.persistLocked(ctx)
	return action
}

// List returns a fresh copy of the queue contents in FIFO order.
func (q *Queue) List() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingAction, len(q.actions))
	copy(out, q.actions)
	return out
}

// Remove deletes the record with the given id. Removing an absent id is a
// no-op.
func (q *Queue) Remove(ctx context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, a := range q.actions {
		if a.ID == id {
			q.actions = append(q.actions[:i], q.actions[i+1:]...)
			q.persistLocked(ctx)
			return
		}
	}
}

// Clear empties the queue. Explicit resets only; the normal sync flow
// removes records one by one.
func (q *Queue) Clear(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = nil
	q.persistLocked(ctx)
}

// PendingFor counts queued actions referencing the given entity.
func (q *Queue) PendingFor(kind Kind, entityID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, a := range q.actions {
		if a.Kind == kind && a.EntityID == entityID {
			n++
		}
	}
	return n
}

// Len reports the number of queued actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

func (q *Queue) persistLocked(ctx context.Context) {
	data, err := json.Marshal(q.actions)
	if err != nil {
		q.logger.Warn("failed to encode action queue", "error", err)
		return
	}
	if err := q.store.Set(ctx, queueKey, data); err != nil {
		q.logger.Warn("failed to persist action queue", "error", err)
	}
}

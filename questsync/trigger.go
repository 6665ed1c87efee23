// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"log/slog"
	"sync"
)

// Trigger turns connectivity transitions into flush requests. The
// Offline→Online edge fires one flush; Online→Offline does nothing (the
// queue keeps accumulating). One extra flush runs at start to drain
// anything left over from a prior session, since the monitor may already
// report online and never emit a transition.
type Trigger struct {
	engine  *Engine
	monitor Monitor
	logger  *slog.Logger

	mu          sync.Mutex
	online      bool
	unsubscribe func()
}

// NewTrigger creates a reconnection trigger for the engine.
func NewTrigger(engine *Engine, monitor Monitor, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{engine: engine, monitor: monitor, logger: logger}
}

// Start seeds the state machine from the monitor's current reading,
// subscribes for transitions, and fires the startup flush. Flushes run on
// their own goroutine; overlapping requests collapse in the engine's
// single-flight guard.
func (t *Trigger) Start(ctx context.Context) {
	t.mu.Lock()
	t.online = t.monitor.Current().Online()
	t.unsubscribe = t.monitor.Subscribe(func(state ConnectivityState) {
		t.onChange(ctx, state)
	})
	t.mu.Unlock()

	go func() {
		if err := t.engine.Flush(ctx); err != nil {
			t.logger.Warn("startup flush failed", "error", err)
		}
	}()
}

// Stop unsubscribes from the monitor. A flush already in flight is not
// cancelled.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}

func (t *Trigger) onChange(ctx context.Context, state ConnectivityState) {
	t.mu.Lock()
	was := t.online
	t.online = state.Online()
	now := t.online
	t.mu.Unlock()

	if was || !now {
		return
	}
	t.logger.Info("connectivity restored, flushing pending actions")
	go func() {
		if err := t.engine.Flush(ctx); err != nil {
			t.logger.Warn("reconnect flush failed", "error", err)
		}
	}()
}

// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Monitor reports the current connectivity state and emits transition
// events to subscribers.
type Monitor interface {
	Current() ConnectivityState
	// Subscribe registers a callback invoked on every state change and
	// returns an unsubscribe function.
	Subscribe(fn func(ConnectivityState)) (unsubscribe func())
}

// ManualMonitor is a Monitor whose state is set by the caller. It backs
// tests and hosts that receive connectivity signals from the OS.
type ManualMonitor struct {
	mu     sync.Mutex
	state  ConnectivityState
	subs   map[int]func(ConnectivityState)
	nextID int
}

// NewManualMonitor creates a monitor with the given initial state.
func NewManualMonitor(initial ConnectivityState) *ManualMonitor {
	return &ManualMonitor{
		state: initial,
		subs:  make(map[int]func(ConnectivityState)),
	}
}

func (m *ManualMonitor) Current() ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Set updates the state and notifies subscribers when it changed.
func (m *ManualMonitor) Set(state ConnectivityState) {
	m.mu.Lock()
	if m.state == state {
		m.mu.Unlock()
		return
	}
	m.state = state
	callbacks := make([]func(ConnectivityState), 0, len(m.subs))
	for _, fn := range m.subs {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may call back into
	// the monitor.
	for _, fn := range callbacks {
		fn(state)
	}
}

func (m *ManualMonitor) Subscribe(fn func(ConnectivityState)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// ProbeMonitor derives connectivity by periodically probing a URL. It is
// the signal source for hosts without an OS-level reachability API.
type ProbeMonitor struct {
	*ManualMonitor

	url      string
	interval time.Duration
	http     *http.Client
	logger   *slog.Logger
}

// NewProbeMonitor creates a probe monitor. The initial state is offline
// until the first probe succeeds.
func NewProbeMonitor(url string, interval time.Duration, logger *slog.Logger) *ProbeMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProbeMonitor{
		ManualMonitor: NewManualMonitor(ConnectivityState{}),
		url:           url,
		interval:      interval,
		http:          &http.Client{Timeout: 5 * time.Second},
		logger:        logger,
	}
}

// Start launches the probe loop. It stops when ctx is cancelled.
func (p *ProbeMonitor) Start(ctx context.Context) {
	go func() {
		for {
			p.Set(p.probe(ctx))
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.interval):
			}
		}
	}()
}

func (p *ProbeMonitor) probe(ctx context.Context) ConnectivityState {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.logger.Warn("failed to create probe request", "url", p.url, "error", err)
		return ConnectivityState{}
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return ConnectivityState{IsConnected: false, IsInternetReachable: false}
	}
	resp.Body.Close()
	return ConnectivityState{IsConnected: true, IsInternetReachable: true}
}

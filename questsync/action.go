// Package questsync provides the offline action queue and reconnect-driven
// synchronization engine for the study-app mobile client. Learner progress
// (character growth, quest progress, achievements) keeps accumulating while
// the device is offline and is replayed against the remote API once
// connectivity returns.
//
// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import "time"

// Kind identifies which synchronizer applies a pending action.
type Kind string

const (
	KindCharacter     Kind = "character"
	KindQuestProgress Kind = "quest_progress"
	KindAchievement   Kind = "achievement"
)

// PendingAction is one durable record of a local mutation awaiting upload.
type PendingAction struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Kind      Kind           `json:"kind"`
	EntityID  string         `json:"entity_id"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Snapshot is the merged, not-yet-synchronized local state for one entity.
type Snapshot struct {
	Kind        Kind           `json:"kind"`
	EntityID    string         `json:"entity_id"`
	Fields      map[string]any `json:"fields"`
	LastUpdated time.Time      `json:"last_updated"`
}

// ConnectivityState is the monitor's current reading. Transient, never
// persisted.
type ConnectivityState struct {
	IsConnected         bool
	IsInternetReachable bool
}

// Online reports whether remote calls are worth attempting.
func (s ConnectivityState) Online() bool {
	return s.IsConnected && s.IsInternetReachable
}

func copyFields(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"fmt"
	"net/http"
)

// CharacterSynchronizer applies merged character updates to the remote API.
// A single local action may fan out into up to three calls: base stats,
// experience gain, and equipment changes. The calls are sequential and not
// transactional; all values are absolute, so replaying the same payload
// after a partial failure converges to the same remote state.
type CharacterSynchronizer struct {
	rc *remoteClient
}

// NewCharacterSynchronizer creates the character adapter.
func NewCharacterSynchronizer(baseURL string, httpClient *http.Client, token TokenSource, monitor Monitor) *CharacterSynchronizer {
	return &CharacterSynchronizer{rc: &remoteClient{
		baseURL: baseURL,
		http:    httpClient,
		token:   token,
		monitor: monitor,
	}}
}

func (s *CharacterSynchronizer) Kind() Kind { return KindCharacter }

func (s *CharacterSynchronizer) Apply(ctx context.Context, entityID string, payload map[string]any) error {
	token, err := s.rc.preflight(ctx)
	if err != nil {
		return err
	}

	if stats := subset(payload, "experience", "equipment"); stats != nil {
		if err := s.rc.send(ctx, http.MethodPut, "/characters/"+entityID+"/stats", stats, token); err != nil {
			return fmt.Errorf("character stats update failed: %w", err)
		}
	}
	if xp, ok := payload["experience"]; ok {
		body := map[string]any{"experience": xp}
		if err := s.rc.send(ctx, http.MethodPost, "/characters/"+entityID+"/experience", body, token); err != nil {
			return fmt.Errorf("character experience update failed: %w", err)
		}
	}
	if equipment, ok := payload["equipment"]; ok {
		body := map[string]any{"equipment": equipment}
		if err := s.rc.send(ctx, http.MethodPut, "/characters/"+entityID+"/equipment", body, token); err != nil {
			return fmt.Errorf("character equipment update failed: %w", err)
		}
	}
	return nil
}

// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"fmt"
	"net/http"
)

// AchievementSynchronizer applies merged achievement state to the remote
// API: counter progress, plus an unlock claim once earned locally.
type AchievementSynchronizer struct {
	rc *remoteClient
}

// NewAchievementSynchronizer creates the achievement adapter.
func NewAchievementSynchronizer(baseURL string, httpClient *http.Client, token TokenSource, monitor Monitor) *AchievementSynchronizer {
	return &AchievementSynchronizer{rc: &remoteClient{
		baseURL: baseURL,
		http:    httpClient,
		token:   token,
		monitor: monitor,
	}}
}

func (s *AchievementSynchronizer) Kind() Kind { return KindAchievement }

func (s *AchievementSynchronizer) Apply(ctx context.Context, entityID string, payload map[string]any) error {
	token, err := s.rc.preflight(ctx)
	if err != nil {
		return err
	}

	if progress := subset(payload, "unlocked"); progress != nil {
		if err := s.rc.send(ctx, http.MethodPost, "/achievements/"+entityID+"/progress", progress, token); err != nil {
			return fmt.Errorf("achievement progress update failed: %w", err)
		}
	}
	if unlocked, ok := payload["unlocked"].(bool); ok && unlocked {
		if err := s.rc.send(ctx, http.MethodPost, "/achievements/"+entityID+"/unlock", nil, token); err != nil {
			return fmt.Errorf("achievement unlock failed: %w", err)
		}
	}
	return nil
}

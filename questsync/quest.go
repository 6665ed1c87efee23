// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"fmt"
	"net/http"
)

// QuestProgressSynchronizer applies merged quest progress to the remote
// API: a progress report, plus a completion claim when the quest finished
// locally. The completion endpoint is idempotent on the server side.
type QuestProgressSynchronizer struct {
	rc *remoteClient
}

// NewQuestProgressSynchronizer creates the quest progress adapter.
func NewQuestProgressSynchronizer(baseURL string, httpClient *http.Client, token TokenSource, monitor Monitor) *QuestProgressSynchronizer {
	return &QuestProgressSynchronizer{rc: &remoteClient{
		baseURL: baseURL,
		http:    httpClient,
		token:   token,
		monitor: monitor,
	}}
}

func (s *QuestProgressSynchronizer) Kind() Kind { return KindQuestProgress }

func (s *QuestProgressSynchronizer) Apply(ctx context.Context, entityID string, payload map[string]any) error {
	token, err := s.rc.preflight(ctx)
	if err != nil {
		return err
	}

	if progress := subset(payload, "completed"); progress != nil {
		if err := s.rc.send(ctx, http.MethodPost, "/quests/"+entityID+"/progress", progress, token); err != nil {
			return fmt.Errorf("quest progress update failed: %w", err)
		}
	}
	if completed, ok := payload["completed"].(bool); ok && completed {
		if err := s.rc.send(ctx, http.MethodPost, "/quests/"+entityID+"/complete", nil, token); err != nil {
			return fmt.Errorf("quest completion failed: %w", err)
		}
	}
	return nil
}

// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Synchronizer turns the merged local payload for one entity into remote
// calls. Implementations must verify reachability and credentials
// themselves and fail (not silently succeed) when either is missing, so
// the action stays queued. Remote calls are not transactional; replaying
// the same merged payload after a partial failure must be safe.
type Synchronizer interface {
	Kind() Kind
	Apply(ctx context.Context, entityID string, payload map[string]any) error
}

// TokenSource returns the current bearer token. Absence of a credential is
// an expected condition and must surface as an error.
type TokenSource func(ctx context.Context) (string, error)

var (
	// ErrOffline signals that the connectivity monitor reports no usable
	// network. Always retryable.
	ErrOffline = errors.New("questsync: offline")
	// ErrNoCredential signals a missing or expired bearer token. Retryable;
	// token refresh is the auth layer's job, not this engine's.
	ErrNoCredential = errors.New("questsync: no credential")
)

// remoteClient is the shared HTTP plumbing for the built-in synchronizers.
type remoteClient struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	monitor Monitor
}

// preflight verifies network reachability and credential presence and
// returns the bearer token to use.
func (r *remoteClient) preflight(ctx context.Context) (string, error) {
	if r.monitor != nil && !r.monitor.Current().Online() {
		return "", ErrOffline
	}
	if r.token == nil {
		return "", ErrNoCredential
	}
	token, err := r.token(ctx)
	if err != nil {
		return "", fmt.Errorf("credential lookup failed: %w", err)
	}
	if token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

// send issues one JSON request and fails on any non-2xx response.
func (r *remoteClient) send(ctx context.Context, method, path string, body map[string]any, token string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// subset returns the payload fields not named in exclude, or nil when none
// remain.
func subset(payload map[string]any, exclude ...string) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, k := range exclude {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

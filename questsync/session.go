// Copyright 2025 go-questsync contributors
// SPDX-License-Identifier: Apache-2.0

package questsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the current bearer token for the signed-in learner. The
// auth layer sets it on sign-in and clears it on sign-out; the engine only
// reads it. Session.Token satisfies TokenSource.
type Session struct {
	mu    sync.RWMutex
	token string
}

// NewSession creates an unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

// SignIn installs a bearer token.
func (s *Session) SignIn(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SignOut clears the token. Subsequent Token calls fail with
// ErrNoCredential until the next sign-in.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Token returns the current bearer token. A missing token is an expected
// condition (not yet authenticated) and an expired one is treated the same
// way; both surface as ErrNoCredential so queued actions stay put until the
// auth layer refreshes the session.
func (s *Session) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", ErrNoCredential
	}

	// Expiry check only; signature verification is the server's job.
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("malformed bearer token: %w", err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", ErrNoCredential
	}
	return token, nil
}

// SessionClaims are the JWT claims minted for a device session.
type SessionClaims struct {
	DeviceID string `json:"did"`
	jwt.RegisteredClaims
}

// MintToken generates an HS256 session token. Demos and tests use it to
// stand in for the real auth service.
func MintToken(secret, userID, deviceID string, expiration time.Duration) (string, error) {
	claims := &SessionClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "go-questsync",
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

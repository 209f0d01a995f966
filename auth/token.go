// Package auth holds credential state that providers share across solve calls.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Token is a bearer credential with its expiry. A zero ExpiresAt never expires.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// RefreshFunc obtains a fresh token from the provider.
type RefreshFunc func(ctx context.Context) (Token, error)

// TokenCell caches a bearer token and refreshes it lazily. Concurrent callers
// that find it stale share one refresh; the last completed refresh wins.
type TokenCell struct {
	refresh RefreshFunc
	skew    time.Duration

	mu    sync.RWMutex
	token Token
	group singleflight.Group
}

// NewTokenCell returns an empty cell. skew renews tokens that early before expiry.
func NewTokenCell(refresh RefreshFunc, skew time.Duration) *TokenCell {
	return &TokenCell{refresh: refresh, skew: skew}
}

// Get returns a valid token, refreshing it first if missing or about to expire.
func (c *TokenCell) Get(ctx context.Context) (string, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()
	if c.fresh(tok) {
		return tok.Value, nil
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		c.mu.RLock()
		cur := c.token
		c.mu.RUnlock()
		if c.fresh(cur) {
			return cur, nil
		}
		// Detached so one cancelled caller does not fail the others sharing this refresh.
		t, err := c.refresh(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if t.Value == "" {
			return nil, fmt.Errorf("refresh returned empty token")
		}
		c.mu.Lock()
		c.token = t
		c.mu.Unlock()
		slog.Debug("auth: token refreshed", slog.Time("expires_at", t.ExpiresAt))
		return t, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(Token).Value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token so the next Get refreshes. Providers call
// it when the API rejects the token before its advertised expiry.
func (c *TokenCell) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
}

func (c *TokenCell) fresh(t Token) bool {
	if t.Value == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Add(c.skew).Before(t.ExpiresAt)
}

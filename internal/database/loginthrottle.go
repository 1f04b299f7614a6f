package database

import (
	"context"
	"time"
)

// LoginThrottle counts failed Subsonic login attempts per username in
// the Session cache client, keyed under "login_throttle:<username>".
// It satisfies internal/subsonic's LoginThrottle interface structurally
// (subsonic never imports this package, avoiding an import cycle with
// server wiring that constructs both).
type LoginThrottle struct {
	client CacheClient
	// MaxFailures is the count of consecutive failures that triggers
	// throttling; the window resets on success or after Window elapses.
	MaxFailures int
	Window      time.Duration
}

// NewLoginThrottle builds a LoginThrottle backed by cache.Session,
// the client reserved for ephemeral per-session state.
func NewLoginThrottle(cache Cache) *LoginThrottle {
	return &LoginThrottle{
		client:      cache.Session,
		MaxFailures: 5,
		Window:      15 * time.Minute,
	}
}

type loginFailureRecord struct {
	Count int `json:"count"`
}

func (t *LoginThrottle) key(username string) string {
	return "login_throttle:" + username
}

func (t *LoginThrottle) IsThrottled(ctx context.Context, username string) (bool, error) {
	var rec loginFailureRecord
	found, err := NewCacheBuilder(t.client, t.key(username)).WithContext(ctx).Get(&rec)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return rec.Count >= t.MaxFailures, nil
}

func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	var rec loginFailureRecord
	_, err := NewCacheBuilder(t.client, t.key(username)).WithContext(ctx).Get(&rec)
	if err != nil {
		return err
	}
	rec.Count++
	return NewCacheBuilder(t.client, t.key(username)).
		WithContext(ctx).
		WithTTL(t.Window).
		WithStruct(rec).
		Set()
}

func (t *LoginThrottle) RecordSuccess(ctx context.Context, username string) error {
	return NewCacheBuilder(t.client, t.key(username)).WithContext(ctx).Delete()
}

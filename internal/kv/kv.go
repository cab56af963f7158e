package kv

import (
	"context"
	"errors"
)

// Logical keys used by the application. Everything the UI persists lives
// under one of these, plus timestamped backup keys written on corruption.
const (
	KeySessions = "sessions"
	KeyProfile  = "study_profile"
	KeyTheme    = "theme"
	KeyVoice    = "voice"
	KeyLanguage = "language"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the key-value blob store the session store and settings are
// persisted to. Implementations must treat values as opaque bytes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

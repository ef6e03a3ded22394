// Package identity resolves the locally persisted user identifier that
// scopes which tasks the backend returns.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	// Key is the settings key the identifier is stored under.
	Key = "video_merger_user_id"
	// Anonymous is used when nothing has been stored yet.
	Anonymous = "anonymous_user"
)

var ErrEmptyID = errors.New("user id must not be empty")

// Settings is the local key/value store the identifier lives in.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Resolve returns the stored identifier, or Anonymous when none is stored.
func Resolve(ctx context.Context, s Settings) (string, error) {
	id, ok, err := s.GetSetting(ctx, Key)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(id) == "" {
		return Anonymous, nil
	}
	return id, nil
}

// Set persists id as the current user identifier.
func Set(ctx context.Context, s Settings, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	return s.SetSetting(ctx, Key, id)
}

// Generate stores and returns a fresh random identifier.
func Generate(ctx context.Context, s Settings) (string, error) {
	id := uuid.New().String()
	if err := s.SetSetting(ctx, Key, id); err != nil {
		return "", err
	}
	return id, nil
}

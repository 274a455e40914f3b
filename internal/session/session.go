// Package session owns the current user identity and the theme preference.
// The user name selects the ledger/archive/budget storage namespaces; an
// absent name means logged out. Logout never deletes persisted data.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pondo/internal/core"
	"pondo/internal/store"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type Session struct {
	kv store.KV
}

func New(kv store.KV) *Session {
	return &Session{kv: kv}
}

// Current returns the logged-in user name, or "" when logged out.
func (s *Session) Current(ctx context.Context) (string, error) {
	name, _, err := s.kv.Get(ctx, store.KeyUserName)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	return name, nil
}

// Login trims and stores the display name, selecting its namespaces. An
// empty name after trimming is rejected.
func (s *Session) Login(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.ErrEmptyUserName
	}
	if err := s.kv.Set(ctx, store.KeyUserName, name); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	slog.InfoContext(ctx, "Session started", "user", name)
	return name, nil
}

// Logout clears the user name. Persisted ledger/archive/budget data stays.
func (s *Session) Logout(ctx context.Context) error {
	name, _ := s.Current(ctx)
	if err := s.kv.Delete(ctx, store.KeyUserName); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if name != "" {
		slog.InfoContext(ctx, "Session ended", "user", name)
	}
	return nil
}

// Theme returns the stored theme, defaulting to light.
func (s *Session) Theme(ctx context.Context) (string, error) {
	theme, ok, err := s.kv.Get(ctx, store.KeyTheme)
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	if !ok || (theme != ThemeDark && theme != ThemeLight) {
		return ThemeLight, nil
	}
	return theme, nil
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Session) ToggleTheme(ctx context.Context) (string, error) {
	current, err := s.Theme(ctx)
	if err != nil {
		return "", err
	}
	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}
	if err := s.kv.Set(ctx, store.KeyTheme, next); err != nil {
		return "", fmt.Errorf("persist theme: %w", err)
	}
	return next, nil
}

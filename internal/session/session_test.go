package session

import (
	"context"
	"errors"
	"testing"

	"pondo/internal/core"
	"pondo/internal/store/memory"
)

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := New(kv)

	if name, _ := s.Current(ctx); name != "" {
		t.Fatalf("expected logged out, got %q", name)
	}

	name, err := s.Login(ctx, "  Mica  ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if name != "Mica" {
		t.Fatalf("name not trimmed: %q", name)
	}
	if current, _ := s.Current(ctx); current != "Mica" {
		t.Fatalf("Current = %q", current)
	}

	if _, err := s.Login(ctx, "   "); !errors.Is(err, core.ErrEmptyUserName) {
		t.Fatalf("blank login: %v", err)
	}

	// Logout clears the name but never the data namespaces.
	_ = kv.Set(ctx, "transactions_Mica", "[]")
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if current, _ := s.Current(ctx); current != "" {
		t.Fatalf("still logged in: %q", current)
	}
	if _, ok, _ := kv.Get(ctx, "transactions_Mica"); !ok {
		t.Fatal("logout must not delete persisted data")
	}
}

func TestThemeToggle(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New())

	theme, _ := s.Theme(ctx)
	if theme != ThemeLight {
		t.Fatalf("default theme = %q", theme)
	}

	theme, err := s.ToggleTheme(ctx)
	if err != nil || theme != ThemeDark {
		t.Fatalf("first toggle = (%q, %v)", theme, err)
	}
	theme, _ = s.ToggleTheme(ctx)
	if theme != ThemeLight {
		t.Fatalf("second toggle = %q", theme)
	}

	// The stored value survives a fresh Session over the same store.
	theme, _ = s.ToggleTheme(ctx)
	if theme != ThemeDark {
		t.Fatalf("third toggle = %q", theme)
	}
	if persisted, _ := s.Theme(ctx); persisted != ThemeDark {
		t.Fatalf("persisted theme = %q", persisted)
	}
}

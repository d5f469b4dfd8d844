package credentials

import (
	"errors"
	"runtime"
	"testing"
)

func TestResolveFromEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  env-key  ")

	key, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if key != "env-key" {
		t.Errorf("Resolve = %q, want trimmed env-key", key)
	}
}

func TestResolveMissingEverywhere(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("override location isolation relies on XDG_CONFIG_HOME")
	}
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := Resolve()
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("Expected ErrAPIKeyMissing, got %v", err)
	}
}

func TestSaveAndResolveOverride(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("override location isolation relies on XDG_CONFIG_HOME")
	}
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SaveOverride(" local-key \n"); err != nil {
		t.Fatalf("SaveOverride failed: %v", err)
	}

	key, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if key != "local-key" {
		t.Errorf("Resolve = %q, want local-key", key)
	}

	// The environment tier wins over the override.
	t.Setenv("GEMINI_API_KEY", "env-key")
	key, err = Resolve()
	if err != nil || key != "env-key" {
		t.Errorf("Resolve = %q, %v; want env-key", key, err)
	}

	t.Setenv("GEMINI_API_KEY", "")
	if err := ClearOverride(); err != nil {
		t.Fatalf("ClearOverride failed: %v", err)
	}
	if _, err := Resolve(); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("Expected ErrAPIKeyMissing after clear, got %v", err)
	}
}

func TestSaveOverrideRejectsEmptyKey(t *testing.T) {
	if err := SaveOverride("   "); err == nil {
		t.Error("Expected an error for an empty key")
	}
}

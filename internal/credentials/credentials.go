package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrAPIKeyMissing means neither credential tier holds a Gemini API key.
// It is permanent: callers must not retry, they should redirect the user
// to credential setup instead.
var ErrAPIKeyMissing = errors.New("GEMINI_API_KEY not set and no local override saved")

const envVar = "GEMINI_API_KEY"

// Resolve returns the Gemini API key. The environment variable wins;
// otherwise a locally persisted override is used.
func Resolve() (string, error) {
	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key, nil
	}

	path, err := overridePath()
	if err != nil {
		return "", ErrAPIKeyMissing
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", ErrAPIKeyMissing
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrAPIKeyMissing
	}
	return key, nil
}

// SaveOverride persists the local credential tier.
func SaveOverride(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("refusing to save empty api key")
	}

	path, err := overridePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(key+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	return nil
}

// ClearOverride removes the persisted override, if any.
func ClearOverride() error {
	path, err := overridePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove api key override: %w", err)
	}
	return nil
}

func overridePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "artaudit", "apikey"), nil
}

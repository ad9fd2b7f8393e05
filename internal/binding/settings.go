package binding

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"go.yaml.in/yaml/v3"
)

// Settings is the persisted per-binding configuration document: a flat
// key/value YAML file reconciled against a template of defaults on load.
type Settings struct {
	path     string
	defaults map[string]any
	values   map[string]any
	mu       sync.RWMutex
}

// NewSettings creates a settings document bound to path. The defaults act
// as the current schema: keys missing from the file are filled from them.
func NewSettings(path string, defaults map[string]any) *Settings {
	values := make(map[string]any, len(defaults))
	maps.Copy(values, defaults)

	return &Settings{
		path:     path,
		defaults: defaults,
		values:   values,
	}
}

// Path returns the settings file path.
func (s *Settings) Path() string {
	return s.path
}

// Exists reports whether the settings document is present on disk.
func (s *Settings) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the document and reconciles it against the defaults. A missing
// or unparsable file rewrites the defaults instead of failing, so a binding
// always comes up with usable settings.
func (s *Settings) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("Settings file is unreadable, rewriting defaults", "path", s.path, "error", err)
		return s.resetLocked()
	}

	var loaded map[string]any
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		slog.Warn("Settings file is unparsable, rewriting defaults", "path", s.path, "error", err)
		return s.resetLocked()
	}

	values := make(map[string]any, len(s.defaults))
	maps.Copy(values, s.defaults)
	maps.Copy(values, loaded)
	s.values = values

	return nil
}

// resetLocked replaces the values with the defaults and persists them.
func (s *Settings) resetLocked() error {
	s.values = make(map[string]any, len(s.defaults))
	maps.Copy(s.values, s.defaults)

	return s.saveLocked()
}

// Save writes the document to disk, creating the parent directory.
func (s *Settings) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked()
}

func (s *Settings) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("binding: failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("binding: failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("binding: failed to write settings: %w", err)
	}

	return nil
}

// Set stores a value.
func (s *Settings) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}

// Get returns the raw value for key.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// GetString returns the string value for key, or fallback.
func (s *Settings) GetString(key, fallback string) string {
	if v, ok := s.Get(key); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return fallback
}

// GetInt returns the integer value for key, or fallback. YAML decodes
// numbers as int or float64 depending on their spelling, so both are
// accepted.
func (s *Settings) GetInt(key string, fallback int) int {
	if v, ok := s.Get(key); ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return fallback
}

// GetFloat returns the float value for key, or fallback.
func (s *Settings) GetFloat(key string, fallback float64) float64 {
	if v, ok := s.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return fallback
}

// GetBool returns the boolean value for key, or fallback.
func (s *Settings) GetBool(key string, fallback bool) bool {
	if v, ok := s.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// All returns a copy of the current values.
func (s *Settings) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// Package prefs holds the user's reminder preferences, read from a YAML file
// and reloaded when that file changes.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultSnooze = 5 * time.Minute

// Duration accepts either a Go duration string ("10m") or a bare integer
// count of milliseconds (300000).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("prefs: invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Preferences struct {
	RemindersEnabled    bool     `yaml:"reminders_enabled"`
	PersistentReminders bool     `yaml:"persistent_reminders"`
	SnoozeDuration      Duration `yaml:"snooze_duration"`
}

func Defaults() Preferences {
	return Preferences{
		RemindersEnabled: true,
		SnoozeDuration:   Duration(DefaultSnooze),
	}
}

func (p Preferences) Validate() error {
	if p.SnoozeDuration < 0 {
		return errors.New("prefs: snooze_duration must not be negative")
	}
	return nil
}

func Parse(data []byte) (Preferences, error) {
	p := Defaults()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("prefs: parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Load reads path. A missing file yields defaults.
func Load(path string) (Preferences, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("prefs: read %s: %w", path, err)
	}
	return Parse(data)
}

func Save(path string, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prefs: ensure dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("prefs: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// Store serves the current preferences to concurrent readers.
type Store struct {
	current atomic.Pointer[Preferences]
}

func NewStore(p Preferences) *Store {
	s := &Store{}
	s.Set(p)
	return s
}

func (s *Store) Set(p Preferences) {
	s.current.Store(&p)
}

func (s *Store) Snapshot() Preferences {
	return *s.current.Load()
}

func (s *Store) RemindersEnabled() bool {
	return s.current.Load().RemindersEnabled
}

func (s *Store) PersistentReminders() bool {
	return s.current.Load().PersistentReminders
}

// SnoozeDuration falls back to five minutes when unset.
func (s *Store) SnoozeDuration() time.Duration {
	d := time.Duration(s.current.Load().SnoozeDuration)
	if d <= 0 {
		return DefaultSnooze
	}
	return d
}

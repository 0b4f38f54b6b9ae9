package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store owns the live configuration. Reads return copies; Update is the only
// writer and persists the change before publishing it.
//
// A store opened with OpenStore also tracks the document on disk separately
// from the live configuration, so values that came from the environment or
// flags stay in memory and only patched keys reach the file.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
	file map[string]any
}

// NewStore wraps cfg. When path is empty updates are kept in memory only.
// Updates write the whole of cfg to path.
func NewStore(path string, cfg Config) *Store {
	cfg.ApplyDefaults()
	cfg.ConfigPath = path
	return &Store{path: path, cfg: cfg}
}

// OpenStore wraps live, the merged runtime configuration, and reads the
// document at path as the base for updates. A missing file starts empty.
func OpenStore(path string, live Config) (*Store, error) {
	s := NewStore(path, live)
	s.file = map[string]any{}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(raw, &s.file); err != nil {
		return nil, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return s, nil
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.cfg)
}

// Map returns the current configuration as a flat option mapping.
func (s *Store) Map() (map[string]any, error) {
	return toMap(s.Snapshot())
}

// Update overlays patch onto the current configuration, validates the result and
// persists it. Keys in patch replace whole values; nested objects are not merged.
func (s *Store) Update(patch map[string]any) (Config, error) {
	return s.Apply(patch, nil)
}

// Apply is Update with a prepare step. prepare receives the validated candidate
// before anything is written; when it fails the file and the live configuration
// are left untouched.
func (s *Store) Apply(patch map[string]any, prepare func(Config) error) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := toMap(s.cfg)
	if err != nil {
		return Config{}, err
	}
	for k, v := range patch {
		doc[k] = v
	}
	if err := ValidateDocument(doc); err != nil {
		return Config{}, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("encode config: %w", err)
	}
	var next Config
	if err := json.Unmarshal(raw, &next); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	next.ApplyDefaults()
	if err := next.Validate(); err != nil {
		return Config{}, err
	}
	next.ConfigPath = s.path

	var file map[string]any
	if s.file != nil {
		file = make(map[string]any, len(s.file)+len(patch))
		for k, v := range s.file {
			file[k] = v
		}
		for k, v := range patch {
			file[k] = v
		}
	}

	if prepare != nil {
		if err := prepare(cloneConfig(next)); err != nil {
			return Config{}, err
		}
	}

	if s.path != "" {
		var out any = next
		if file != nil {
			out = file
		}
		if err := writeConfigFile(s.path, out); err != nil {
			return Config{}, err
		}
	}
	s.cfg = next
	if file != nil {
		s.file = file
	}
	return cloneConfig(next), nil
}

func toMap(cfg Config) (map[string]any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return doc, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Hosts = make([]Host, len(cfg.Hosts))
	for i, h := range cfg.Hosts {
		out.Hosts[i] = h
		out.Hosts[i].Models = append([]string(nil), h.Models...)
	}
	if cfg.Seed != nil {
		seed := *cfg.Seed
		out.Seed = &seed
	}
	return out
}

// writeConfigFile writes doc next to path and renames it into place.
func writeConfigFile(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

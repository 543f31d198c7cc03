package fallback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain"
)

const ext = ".json"

// Store is a directory of pre-generated JSON snapshots, one file per key.
// Snapshots never expire; regeneration overwrites them wholesale.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates a Store rooted at dir. The directory is created on first Save.
func New(dir string, logger *zap.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path holding key's snapshot.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+ext)
}

// Load returns the snapshot for key. Missing, unreadable and undecodable
// files are all reported as absent.
func (s *Store) Load(key string) (any, bool) {
	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Static snapshot unreadable", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.Warn("Static snapshot ignored",
			zap.String("key", key),
			zap.Error(fmt.Errorf("%w: %w", domain.ErrMalformedSnapshot, err)),
		)
		return nil, false
	}
	return v, true
}

// Save writes value as key's snapshot via temp file and rename, so readers
// never observe a partial file. Failures are logged and reported as false.
func (s *Store) Save(key string, value any) bool {
	if err := s.save(key, value); err != nil {
		s.logger.Error("Failed to save static snapshot", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *Store) save(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Keys lists the keys that currently have a snapshot, sorted.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"MarketLens/pkg/util"
)

// FSStore persists one file per dataset snapshot under a single directory.
// Artifact names encode {kind, symbol token, period, day, time}, so the key
// derivation is reproducible from the filename alone and repeated runs never
// overwrite distinct snapshots. Writes go through a temp file plus rename so
// concurrent readers never observe a half-written entry.
type FSStore struct {
	dir string
}

// NewFSStore creates the directory if needed and returns the store.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Get(_ context.Context, key Key) (Entry, error) {
	names, err := s.snapshots(key.ArtifactPrefix())
	if err != nil {
		return Entry{}, err
	}
	if len(names) == 0 {
		return Entry{}, ErrCacheMiss
	}
	// names sorted ascending by stamp; newest snapshot of the day wins
	b, err := os.ReadFile(filepath.Join(s.dir, names[len(names)-1]))
	if err != nil {
		return Entry{}, fmt.Errorf("cache read: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("cache decode %s: %w", names[len(names)-1], err)
	}
	e.Key = key
	return e, nil
}

func (s *FSStore) Put(_ context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	name := fmt.Sprintf("%s_%s.json", e.Key.ArtifactPrefix(), e.FetchedAt.UTC().Format("150405"))

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache tmp: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache publish: %w", err)
	}
	return nil
}

func (s *FSStore) Sweep(_ context.Context, olderThan time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	removed := 0
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		at, ok := stampOf(name)
		if !ok {
			continue
		}
		if at.Before(olderThan) {
			if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *FSStore) Close() error { return nil }

// snapshots lists this day's artifact names for the prefix, sorted ascending.
func (s *FSStore) snapshots(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	var names []string
	for _, de := range entries {
		name := de.Name()
		if !de.IsDir() && strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// stampOf recovers the snapshot time from an artifact name
// ("<kind>_<token>_<period>_<YYYYMMDD>_<HHMMSS>.json").
func stampOf(name string) (time.Time, bool) {
	base := strings.TrimSuffix(name, ".json")
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	stamp := parts[len(parts)-2] + "_" + parts[len(parts)-1]
	return util.ParseSnapshotStamp(stamp)
}

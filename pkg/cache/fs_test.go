package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fsStore(t *testing.T) (*FSStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, dir
}

func TestFSStorePutGet(t *testing.T) {
	s, dir := fsStore(t)
	ctx := context.Background()

	key := NewKey("history", []string{"CHILE.SN"}, "3mo", "20241010")
	fetched := time.Date(2024, 10, 10, 14, 30, 5, 0, time.UTC)
	e := Entry{Key: key, FetchedAt: fetched, TTLClass: "history", Payload: json.RawMessage(`{"n":1}`)}
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Fatalf("fetched_at mismatch: %v", got.FetchedAt)
	}
	if string(got.Payload) != `{"n":1}` {
		t.Fatalf("payload mismatch: %s", got.Payload)
	}

	// artifact name must encode kind, symbol, period, day and time
	files, _ := os.ReadDir(dir)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if name := files[0].Name(); name != "history_CHILE_SN_3mo_20241010_143005.json" {
		t.Fatalf("unexpected artifact name %q", name)
	}
}

func TestFSStoreMiss(t *testing.T) {
	s, _ := fsStore(t)
	_, err := s.Get(context.Background(), NewKey("quote", []string{"X"}, "1d", "20241010"))
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestFSStoreNewestSnapshotWins(t *testing.T) {
	s, _ := fsStore(t)
	ctx := context.Background()
	key := NewKey("quote", []string{"CHILE.SN"}, "1d", "20241010")

	old := Entry{Key: key, FetchedAt: time.Date(2024, 10, 10, 9, 0, 0, 0, time.UTC), Payload: json.RawMessage(`"old"`)}
	newer := Entry{Key: key, FetchedAt: time.Date(2024, 10, 10, 15, 0, 0, 0, time.UTC), Payload: json.RawMessage(`"new"`)}
	if err := s.Put(ctx, old); err != nil {
		t.Fatalf("put old: %v", err)
	}
	if err := s.Put(ctx, newer); err != nil {
		t.Fatalf("put new: %v", err)
	}

	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Payload) != `"new"` {
		t.Fatalf("expected newest snapshot, got %s", got.Payload)
	}
}

func TestFSStoreSnapshotsNeverOverwrite(t *testing.T) {
	s, dir := fsStore(t)
	ctx := context.Background()
	key := NewKey("quote", []string{"CHILE.SN"}, "1d", "20241010")

	for i, hour := range []int{9, 12, 15} {
		e := Entry{Key: key, FetchedAt: time.Date(2024, 10, 10, hour, 0, 0, 0, time.UTC), Payload: json.RawMessage(`0`)}
		if err := s.Put(ctx, e); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	files, _ := os.ReadDir(dir)
	if len(files) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(files))
	}
}

func TestFSStoreSweep(t *testing.T) {
	s, dir := fsStore(t)
	ctx := context.Background()

	oldKey := NewKey("history", []string{"CCU.SN"}, "3mo", "20241001")
	newKey := NewKey("history", []string{"CCU.SN"}, "3mo", "20241010")
	oldEntry := Entry{Key: oldKey, FetchedAt: time.Date(2024, 10, 1, 10, 0, 0, 0, time.UTC), Payload: json.RawMessage(`0`)}
	newEntry := Entry{Key: newKey, FetchedAt: time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC), Payload: json.RawMessage(`0`)}
	if err := s.Put(ctx, oldEntry); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, newEntry); err != nil {
		t.Fatalf("put: %v", err)
	}

	removed, err := s.Sweep(ctx, time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.Contains(f.Name(), "20241001") {
			t.Fatalf("old snapshot still present: %s", f.Name())
		}
	}
	if _, err := s.Get(ctx, newKey); err != nil {
		t.Fatalf("fresh entry lost: %v", err)
	}
}

func TestFSStoreAtomicPublish(t *testing.T) {
	s, dir := fsStore(t)
	ctx := context.Background()
	key := NewKey("quote", []string{"X"}, "1d", "20241010")
	e := Entry{Key: key, FetchedAt: time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC), Payload: json.RawMessage(`0`)}
	if err := s.Put(ctx, e); err != nil {
		t.Fatalf("put: %v", err)
	}
	// no temp files may survive a successful publish
	matches, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

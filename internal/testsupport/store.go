package testsupport

import (
	"context"
	"testing"

	"wildcam/internal/capturelog"
	"wildcam/internal/config"
)

// MustOpenStore opens a capturelog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *capturelog.Store {
	t.Helper()

	store, err := capturelog.Open(cfg)
	if err != nil {
		t.Fatalf("capturelog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// InsertEvent writes evt to store, filling the timestamp when empty.
func InsertEvent(t testing.TB, store *capturelog.Store, evt capturelog.Event) int64 {
	t.Helper()

	if evt.Timestamp == "" {
		evt.Timestamp = "2025-01-01 12:00:00"
	}
	if evt.Classification == "" {
		evt.Classification = capturelog.FalsePositiveLabel
	}
	id, err := store.Insert(context.Background(), evt)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return id
}

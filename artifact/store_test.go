package artifact

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// backends under test share the Store contract.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory SQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	mem := NewMemoryStore()
	t.Cleanup(func() { mem.Close() })

	return map[string]Store{
		"memory": mem,
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			content := []byte(`{"matches":[{"ticker":"NVDA","score":0.95}]}`)
			if err := store.Write(ctx, "company_matches/batch_0000.json", content); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			got, err := store.Read(ctx, "company_matches/batch_0000.json")
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Errorf("round trip mismatch: wrote %q, read %q", content, got)
			}
		})
	}
}

func TestStoreOverwriteIsIdempotent(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Write(ctx, "k", []byte("first")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if err := store.Write(ctx, "k", []byte("second")); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}

			got, err := store.Read(ctx, "k")
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if string(got) != "second" {
				t.Errorf("expected latest write, got %q", got)
			}

			keys, err := store.List(ctx, "k")
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(keys) != 1 {
				t.Errorf("expected 1 key after overwrite, got %d", len(keys))
			}
		})
	}
}

func TestStoreReadMissing(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Read(ctx, "does/not/exist.json")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStoreListByPrefix(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			writes := []string{
				"company_matches/batch_0000.json",
				"company_matches/batch_0050.json",
				"company_matches/batch_0100.json",
				"validations/company_NVDA.json",
				"themes_analysis.json",
			}
			for _, key := range writes {
				if err := store.Write(ctx, key, []byte("{}")); err != nil {
					t.Fatalf("Write(%s) failed: %v", key, err)
				}
			}

			keys, err := store.List(ctx, "company_matches/batch_")
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(keys) != 3 {
				t.Fatalf("expected 3 batch keys, got %d: %v", len(keys), keys)
			}
			for i := 1; i < len(keys); i++ {
				if keys[i-1] >= keys[i] {
					t.Errorf("keys not sorted: %v", keys)
				}
			}
		})
	}
}

func TestRunStoreScoping(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryStore()
	defer backing.Close()

	runA := NewRunStore(backing, "run-a")
	runB := NewRunStore(backing, "run-b")

	if err := runA.Write(ctx, "themes_analysis.json", []byte("a")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := runB.Write(ctx, "themes_analysis.json", []byte("b")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := runA.Read(ctx, "themes_analysis.json")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "a" {
		t.Errorf("run-a read leaked another run's data: %q", got)
	}

	// Listing returns logical keys, not run-scoped ones.
	keys, err := runA.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "themes_analysis.json" {
		t.Errorf("expected logical key only, got %v", keys)
	}
}

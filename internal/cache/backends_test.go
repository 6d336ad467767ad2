package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// exerciseBackend runs the ExactCache contract against one implementation.
func exerciseBackend(t *testing.T, c ExactCache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "pipeline:v1:absent"); err != nil || hit {
		t.Fatalf("expected clean miss, got hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "pipeline:v1:abc", []byte(`{"n":1}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "pipeline:v1:abc", []byte(`{"n":2}`), time.Hour); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, hit, err := c.Get(ctx, "pipeline:v1:abc")
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if string(got) != `{"n":2}` {
		t.Fatalf("last write should win, got %s", got)
	}

	if err := c.Delete(ctx, "pipeline:v1:abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "pipeline:v1:abc"); hit {
		t.Fatalf("expected miss after delete")
	}
	if err := c.Delete(ctx, "pipeline:v1:abc"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}

	pd, ok := c.(PrefixDeleter)
	if !ok {
		t.Fatalf("%T does not support prefix deletes", c)
	}
	for _, k := range []string{"pipeline:v1:a", "pipeline:v1:b", "pipeline:v10:a", "pipeline:v2:a"} {
		if err := c.Set(ctx, k, []byte(`{}`), 0); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}
	n, err := pd.DeletePrefix(ctx, VersionPrefix("v1"))
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 entries purged, got %d", n)
	}
	for _, k := range []string{"pipeline:v10:a", "pipeline:v2:a"} {
		if _, hit, _ := c.Get(ctx, k); !hit {
			t.Fatalf("%s should survive a v1 purge", k)
		}
	}
}

func TestFileExactCache(t *testing.T) {
	c, err := NewFileExactCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileExactCache: %v", err)
	}
	exerciseBackend(t, c)
}

func TestFileExactCacheExpiryAndCorruption(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileExactCache(dir)
	if err != nil {
		t.Fatalf("NewFileExactCache: %v", err)
	}
	ctx := context.Background()

	if err := c.Set(ctx, "pipeline:v1:short", []byte(`{}`), 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, hit, err := c.Get(ctx, "pipeline:v1:short"); hit || err != nil {
		t.Fatalf("expected expired miss, got hit=%v err=%v", hit, err)
	}

	if err := os.WriteFile(c.pathFor("pipeline:v1:bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, hit, err := c.Get(ctx, "pipeline:v1:bad"); hit || err == nil {
		t.Fatalf("corrupt entry should surface an error, got hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "pipeline:v1:x", []byte("not json"), 0); err == nil {
		t.Fatalf("expected invalid JSON to be rejected")
	}
}

func TestBadgerExactCache(t *testing.T) {
	c, err := OpenBadgerExactCache(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadgerExactCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	exerciseBackend(t, c)
}

func TestSQLiteExactCache(t *testing.T) {
	c, err := OpenSQLiteExactCache(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteExactCache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	exerciseBackend(t, c)

	ctx := context.Background()
	if err := c.Set(ctx, "pipeline:v1:ttl", []byte(`{}`), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "pipeline:v1:ttl"); hit {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestMemoryExactCacheContract(t *testing.T) {
	c := NewMemoryExactCache(time.Minute)
	t.Cleanup(func() { c.Close() })
	exerciseBackend(t, NewLoggingExactCache(c, "memory"))
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, _, err := Open(context.Background(), Config{Backend: "tape"}, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

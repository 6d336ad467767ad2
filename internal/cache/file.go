package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileExactCache stores each entry as a JSON document named after its key.
// Writes go through a temp file + rename, so readers never see a torn entry
// and concurrent writers of one key resolve as last-write-wins.
type FileExactCache struct {
	dir string
}

type fileEnvelope struct {
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Value     json.RawMessage `json:"value"`
}

// NewFileExactCache roots the cache at dir, creating it if needed.
func NewFileExactCache(dir string) (*FileExactCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &FileExactCache{dir: dir}, nil
}

// Dir exposes the cache directory path.
func (c *FileExactCache) Dir() string {
	return c.dir
}

func (c *FileExactCache) pathFor(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(c.dir, name+".json")
}

func (c *FileExactCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("context error: %w", err)
	}

	path := c.pathFor(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("decode cache file %s: %w", filepath.Base(path), err)
	}
	if env.ExpiresAt != nil && time.Now().After(*env.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return env.Value, true, nil
}

// Set requires value to be valid JSON; the pipeline only stores JSON documents.
func (c *FileExactCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if !json.Valid(value) {
		return errors.New("file cache: value is not valid JSON")
	}

	env := fileEnvelope{Value: value}
	if ttl > 0 {
		exp := time.Now().Add(ttl).UTC()
		env.ExpiresAt = &exp
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.pathFor(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}

func (c *FileExactCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	err := os.Remove(c.pathFor(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (c *FileExactCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	// pathFor maps the key prefix onto the file name prefix
	pattern := strings.TrimSuffix(c.pathFor(prefix), ".json") + "*.json"
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("glob cache dir: %w", err)
	}
	n := 0
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return n, fmt.Errorf("remove %s: %w", filepath.Base(path), err)
		}
		n++
	}
	return n, nil
}

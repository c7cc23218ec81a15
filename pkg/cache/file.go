package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// FileCache keeps descriptor memos as JSON files under a directory, one
// file per key, fanned out by the first two hex characters of the key's
// digest. Writes go through a temp file and a rename, so concurrent
// resolvers sharing the directory never observe a torn entry.
type FileCache struct {
	dir string
}

// NewFileCache opens (creating if needed) a descriptor cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "create descriptor cache %s", dir)
	}
	return &FileCache{dir: dir}, nil
}

// memo is the on-disk form of one entry. Key is stored so that an entry is
// only ever served for the key it was written under.
type memo struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (m memo) expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

// Get returns the memo for key. Unreadable, foreign or expired entries are
// removed and reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return nil, false, nil
	case err != nil:
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "read descriptor cache entry")
	}

	var m memo
	if json.Unmarshal(raw, &m) != nil || m.Key != key || m.expired(time.Now()) {
		os.Remove(path)
		return nil, false, nil
	}
	return m.Data, true, nil
}

// Set writes the memo for key. A zero ttl keeps it until deleted.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m := memo{Key: key, Data: data}
	if ttl > 0 {
		m.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode descriptor cache entry")
	}

	path := c.path(key)
	if err := writeAtomic(path, raw); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write descriptor cache entry")
	}
	return nil
}

// Delete removes the memo for key, if any.
func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete descriptor cache entry")
	}
	return nil
}

// Close is a no-op; entries are durable once Set returns.
func (c *FileCache) Close() error { return nil }

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, h[:2], h[2:]+".json")
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".memo-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ Cache = (*FileCache)(nil)

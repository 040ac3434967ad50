// Package cache implements the local key-value store used as an offline
// fallback and write-through cache by the resource stores. Keys are
// namespaced per authenticated user so that two accounts sharing one
// machine never see each other's cached data.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Anonymous is the namespace segment used when no user is authenticated.
const Anonymous = "anonymous"

// Key builds the namespaced cache key for a resource and user id.
// userID may be empty, in which case the anonymous namespace is used.
func Key(resource, userID string) string {
	if userID == "" {
		userID = Anonymous
	}
	return resource + "_" + userID
}

// Cache is a synchronous key-value store of JSON-serializable values
// backed by a directory on an afero filesystem. All operations are
// best-effort from the caller's point of view: a missing key is not an
// error, it is simply not found.
type Cache struct {
	fs  afero.Fs
	dir string
}

// New returns a cache rooted at dir on the given filesystem. The
// directory is created on first write, not here.
func New(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

// NewOS returns a cache on the real filesystem rooted at dir. When dir
// is empty a per-user default under the OS cache directory is used.
func NewOS(dir string) *Cache {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = "."
		}
		dir = filepath.Join(base, "patientcenter")
	}
	return New(afero.NewOsFs(), dir)
}

func (c *Cache) path(key string) string {
	// Keys are resource names plus ids; keep them filesystem-safe.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-' || r == '.':
			return r
		}
		return '-'
	}, key)
	return filepath.Join(c.dir, safe+".json")
}

// Get reads the value stored under key into out. It reports whether the
// key was found. A corrupt entry is treated as missing and removed.
func (c *Cache) Get(key string, out any) (bool, error) {
	data, err := afero.ReadFile(c.fs, c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read cache key %q: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		_ = c.fs.Remove(c.path(key))
		return false, nil
	}
	return true, nil
}

// Put stores value under key, replacing any previous value.
func (c *Cache) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache key %q: %w", key, err)
	}
	if err := c.fs.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.path(key), data, 0o600); err != nil {
		return fmt.Errorf("write cache key %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Cache) Delete(key string) error {
	err := c.fs.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache key %q: %w", key, err)
	}
	return nil
}

// DeleteMatching removes every key with the given prefix. Used on logout
// to clear all state belonging to the session.
func (c *Cache) DeleteMatching(prefix string) error {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list cache dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if strings.HasPrefix(name, prefix) {
			if err := c.fs.Remove(filepath.Join(c.dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete cache key %q: %w", name, err)
			}
		}
	}
	return nil
}

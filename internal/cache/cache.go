// Package cache stores rendered artifacts on disk, keyed by the content of
// the unit they were produced from.
package cache

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"plcabi/internal/project"
	"plcabi/internal/version"
)

// Current schema version - increment when Payload format changes
const schemaVersion uint16 = 1

// DiskCache keeps Payloads under <dir>/units/<key>.mp.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is everything a unit build writes, so a hit skips resolution.
type Payload struct {
	Schema uint16

	Unit       string
	HeaderName string
	Guard      string
	Header     []byte
	Native     string
	Warnings   []string
}

// Open returns a cache rooted at dir, creating it when missing.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Key derives the cache key of a unit from its encoded model and the
// options that shape its artifacts. The generator version is always part
// of the key.
func Key(unit []byte, options ...string) project.Digest {
	parts := make([]project.Digest, 0, len(options)+1)
	parts = append(parts, project.SumString(version.String()))
	for _, o := range options {
		parts = append(parts, project.SumString(o))
	}
	return project.Combine(project.Sum(unit), parts...)
}

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "units", hex.EncodeToString(key[:])+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *Payload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	stored := *payload
	stored.Schema = schemaVersion
	enc := msgpack.NewEncoder(f)
	if err = enc.Encode(&stored); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload. A missing entry or one written by another schema is
// a miss, not an error.
func (c *DiskCache) Get(key project.Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var p Payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return false, err
	}
	if p.Schema != schemaVersion {
		return false, nil
	}
	*out = p
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

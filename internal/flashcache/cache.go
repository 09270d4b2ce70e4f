// Package flashcache remembers the last image programmed onto each target so
// an unchanged image can skip the programmer.
package flashcache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// bump when Record changes shape
const schemaVersion uint16 = 1

// Digest is a SHA-256 of an image file.
type Digest [sha256.Size]byte

// Record describes the last successful flash of a target.
type Record struct {
	Schema    uint16
	Target    string
	Image     string // source image path as given on the command line
	Format    string
	Digest    Digest // of the converted image
	Size      int64
	FlashedAt time.Time
}

// Cache stores one Record per target. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns the cache under $XDG_CACHE_HOME/<app> (or ~/.cache/<app>).
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir returns a cache rooted at dir.
func OpenDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(target string) string {
	// targets are chip names; keep them filesystem-safe anyway
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, target)
	return filepath.Join(c.dir, "flash", name+".mp")
}

// Put stores rec, replacing any previous record for rec.Target atomically.
func (c *Cache) Put(rec *Record) (err error) {
	if c == nil || rec == nil {
		return nil
	}
	if rec.Target == "" {
		return errors.New("flashcache: record without target")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(rec.Target)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	stored := *rec
	stored.Schema = schemaVersion
	if err := msgpack.NewEncoder(f).Encode(&stored); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the record for target. A missing record or one written by an
// older schema reports false.
func (c *Cache) Get(target string) (*Record, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(target))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() {
		_ = f.Close()
	}()

	var rec Record
	if err := msgpack.NewDecoder(f).Decode(&rec); err != nil {
		return nil, false, fmt.Errorf("flashcache: decode %s: %w", target, err)
	}
	if rec.Schema != schemaVersion {
		return nil, false, nil
	}
	return &rec, true, nil
}

// Forget removes the record for target, if any.
func (c *Cache) Forget(target string) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.pathFor(target)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DropAll removes every record.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "flash"))
}

// HashFile returns the SHA-256 digest and size of the file at path.
func HashFile(path string) (Digest, int64, error) {
	var d Digest
	// #nosec G304 -- path points into the flash pipeline's temp dir
	f, err := os.Open(path)
	if err != nil {
		return d, 0, err
	}
	defer func() {
		_ = f.Close()
	}()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return d, 0, err
	}
	copy(d[:], h.Sum(nil))
	return d, n, nil
}

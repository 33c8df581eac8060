// Package assets handles zone archive loading and caching.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Faultbox/azone/pkg/pfs"
)

// ErrArchiveNotFound is returned when an archive file does not exist in the
// data directory.
var ErrArchiveNotFound = errors.New("archive not found")

// Manager opens PFS archives from a data directory on demand.
// Open archives and extracted files are cached until Close.
type Manager struct {
	dir      string
	archives map[string]*pfs.Archive
	cache    *Cache
	mu       sync.Mutex
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:      dir,
		archives: make(map[string]*pfs.Archive),
		cache:    NewCache(),
	}
}

// Dir returns the data directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Archive returns the named archive (for example "qeynos.s3d"), opening it on
// first use. Names are matched case-insensitively against the cache.
func (m *Manager) Archive(name string) (*pfs.Archive, error) {
	key := strings.ToLower(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if archive, ok := m.archives[key]; ok {
		return archive, nil
	}

	path := filepath.Join(m.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, path)
		}
		return nil, err
	}

	archive, err := pfs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.archives[key] = archive
	return archive, nil
}

// Load reads a member file from the named archive.
func (m *Manager) Load(archiveName, member string) ([]byte, error) {
	key := strings.ToLower(archiveName) + ":" + strings.ToLower(member)
	if data, ok := m.cache.Get(key); ok {
		return data, nil
	}

	archive, err := m.Archive(archiveName)
	if err != nil {
		return nil, err
	}

	data, err := archive.Read(member)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archiveName, err)
	}

	m.cache.Set(key, data)
	return data, nil
}

// Close closes all archives and drops cached files.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, archive := range m.archives {
		archive.Close()
	}
	m.archives = make(map[string]*pfs.Archive)
	m.cache.Clear()
}

// CacheStats returns file cache hits and misses.
func (m *Manager) CacheStats() (hits, misses int) {
	return m.cache.Stats()
}

// Cache is a simple in-memory cache for extracted files.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

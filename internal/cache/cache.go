// Package cache stores fetched source bodies so repeated analyses of the
// same URL do not hit the network.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/linreg/internal/model"
)

const keyPrefix = "linreg:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// SourceKey generates a cache key for a fetched source URL
func SourceKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return keyPrefix + "source:" + hex.EncodeToString(hash[:])
}

// Entry is a cached fetch result
type Entry struct {
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	Body         []byte    `json:"body"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// GetEntry loads and decodes an entry. Undecodable entries are treated as misses.
func GetEntry(c Cache, key string) (*Entry, bool) {
	raw, ok := c.Get(key)
	if !ok {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// SetEntry encodes and stores an entry
func SetEntry(c Cache, key string, entry *Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return c.Set(key, raw, ttl)
}

// New builds the cache described by cfg. A disabled cache never stores anything.
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return NopCache{}
	}
	return NewLayeredCache(cfg.MemoryTTL, ExpandHome(cfg.Dir), cfg.DiskTTL)
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// NopCache is a cache that never hits
type NopCache struct{}

func (NopCache) Get(string) ([]byte, bool) { return nil, false }
func (NopCache) Set(string, []byte, time.Duration) error { return nil }
func (NopCache) Delete(string) error { return nil }
func (NopCache) Clear() error { return nil }

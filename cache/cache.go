// Package cache implements the on-disk translation cache that
// deduplicates identical backend requests across batches and runs.
//
// Keys are content hashes of (source text, language pair); values are
// translated strings. The cache file is a plain YAML mapping so it can
// be inspected and edited by hand.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/BemoBit/po-translator/logger"
)

// DefaultFlushEvery is how many insertions trigger an automatic flush.
const DefaultFlushEvery = 100

// Store is a concurrency-safe translation cache backed by a YAML file.
type Store struct {
	mu      sync.RWMutex
	entries map[string]string
	pending int

	path       string
	flushEvery int
	disabled   bool
}

// Options configures a Store.
type Options struct {
	// Path is the durable cache file location.
	Path string
	// FlushEvery is the autoflush insertion threshold (default 100).
	FlushEvery int
	// Disabled bypasses the store entirely: lookups always miss and
	// stores are dropped.
	Disabled bool
}

// Open loads the cache file at opts.Path if it exists. A missing file
// yields an empty cache; an unreadable or corrupt file is logged and
// also yields an empty cache, never an error that stops translation.
func Open(opts Options) *Store {
	s := &Store{
		entries:    make(map[string]string),
		path:       opts.Path,
		flushEvery: opts.FlushEvery,
		disabled:   opts.Disabled,
	}
	if s.flushEvery <= 0 {
		s.flushEvery = DefaultFlushEvery
	}
	if s.disabled {
		return s
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("cache: cannot read %s: %v (starting empty)", s.path, err)
		}
		return s
	}
	if err := yaml.Unmarshal(data, &s.entries); err != nil {
		logger.Warnf("cache: cannot parse %s: %v (starting empty)", s.path, err)
		s.entries = make(map[string]string)
	}
	if s.entries == nil {
		s.entries = make(map[string]string)
	}
	return s
}

// DerivePath returns the cache file location for a catalog and target
// language: a dot-file next to the catalog.
func DerivePath(catalogPath, targetLang string) string {
	dir := filepath.Dir(catalogPath)
	base := strings.TrimSuffix(filepath.Base(catalogPath), filepath.Ext(catalogPath))
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.cache.yaml", base, targetLang))
}

// Fingerprint builds the deterministic cache key for a text and
// language pair. The language pair is part of the hashed content so
// the same text under different pairs never collides.
func Fingerprint(text, sourceLang, targetLang string) string {
	h := sha256.New()
	h.Write([]byte(sourceLang))
	h.Write([]byte{0})
	h.Write([]byte(targetLang))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached translation for a text and language pair.
// Empty or whitespace-only text is never cached; it reports a miss.
func (s *Store) Lookup(text, sourceLang, targetLang string) (string, bool) {
	if s.disabled || strings.TrimSpace(text) == "" {
		return "", false
	}
	key := Fingerprint(text, sourceLang, targetLang)

	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok
}

// Store inserts a translation. Re-inserting the same key with the same
// value is a no-op; a key is never overwritten with a different value.
// Crossing the autoflush threshold triggers a flush.
func (s *Store) Store(text, translation, sourceLang, targetLang string) {
	if s.disabled || strings.TrimSpace(text) == "" {
		return
	}
	key := Fingerprint(text, sourceLang, targetLang)

	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return
	}
	s.entries[key] = translation
	s.pending++
	shouldFlush := s.pending >= s.flushEvery
	s.mu.Unlock()

	if shouldFlush {
		if err := s.Flush(); err != nil {
			logger.Warnf("cache: autoflush failed: %v", err)
		}
	}
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Flush writes the full cache to the durable file. The in-memory map
// is snapshotted under the lock and serialized outside it, so lookups
// and stores from workers continue during the write. The file is
// replaced atomically.
func (s *Store) Flush() error {
	if s.disabled || s.path == "" {
		return nil
	}

	s.mu.Lock()
	snapshot := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	s.pending = 0
	s.mu.Unlock()

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Package ngramcache caches per-document n-gram sets and MinHash signature
// checkpoints across NearDedup runs. curator near-dedup still reads every
// input file and rebuilds its n-gram set in Phase A; the cache serves Phase
// C's n-gram lookups.
//
// Two stores are provided:
//   - Cache     — bounded in-memory S3-FIFO layer over n-gram sets, backed
//     by a persistent Store so entries evicted from memory survive on disk.
//   - SignatureStore — a bbolt-backed checkpoint of MinHash signatures,
//     keyed by document path, validated against the configured hash count.
package ngramcache

import (
	"bytes"
	"container/list"
	"fmt"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// Store is the persistent backing interface for n-gram sets. All
// implementations must be safe for concurrent use.
type Store interface {
	Get(path string) (ngrams map[string]struct{}, ok bool)
	Set(path string, ngrams map[string]struct{})
	Delete(path string)
	Close() error
}

// --- memoryStore ---

type memoryStore struct {
	mu    sync.RWMutex
	store map[string]map[string]struct{}
}

// NewMemoryStore returns an in-memory Store, used in tests and when no
// on-disk cache directory is configured.
func NewMemoryStore() Store {
	return &memoryStore{store: make(map[string]map[string]struct{})}
}

func (s *memoryStore) Get(path string) (map[string]struct{}, bool) {
	s.mu.RLock()
	v, ok := s.store[path]
	s.mu.RUnlock()
	return v, ok
}

func (s *memoryStore) Set(path string, ngrams map[string]struct{}) {
	s.mu.Lock()
	s.store[path] = ngrams
	s.mu.Unlock()
}

func (s *memoryStore) Delete(path string) {
	s.mu.Lock()
	delete(s.store, path)
	s.mu.Unlock()
}

func (s *memoryStore) Close() error { return nil }

// --- boltStore ---

const ngramBucket = "ngram_sets"

type boltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt database at path for persisting
// n-gram sets across process restarts.
func NewBoltStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open ngram cache %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(ngramBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("create ngram bucket: %w", err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Get(path string) (map[string]struct{}, bool) {
	var ngrams map[string]struct{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ngramBucket))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(path))
		if v != nil {
			ngrams = decodeNgramSet(v)
		}
		return nil
	})
	if err != nil || ngrams == nil {
		return nil, false
	}
	return ngrams, true
}

func (s *boltStore) Set(path string, ngrams map[string]struct{}) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ngramBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", ngramBucket)
		}
		return b.Put([]byte(path), encodeNgramSet(ngrams))
	})
}

func (s *boltStore) Delete(path string) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ngramBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(path))
	})
}

func (s *boltStore) Close() error { return s.db.Close() }

var ngramSep = []byte{0}

func encodeNgramSet(ngrams map[string]struct{}) []byte {
	parts := make([][]byte, 0, len(ngrams))
	for ngram := range ngrams {
		parts = append(parts, []byte(ngram))
	}
	return bytes.Join(parts, ngramSep)
}

func decodeNgramSet(data []byte) map[string]struct{} {
	set := make(map[string]struct{})
	if len(data) == 0 {
		return set
	}
	for _, part := range bytes.Split(data, ngramSep) {
		set[string(part)] = struct{}{}
	}
	return set
}

// --- Cache: bounded in-memory S3-FIFO over Store ---

type cacheEntry struct {
	value map[string]struct{}
	freq  uint8
	elem  *list.Element
	inM   bool
}

// Cache applies S3-FIFO eviction in memory in front of a backing Store,
// bounding how many n-gram sets are held resident at once while letting
// evicted entries persist to disk for the next run.
//
// Algorithm: two FIFO queues (S for probation, M for protected) plus a
// bounded ghost set of recently evicted keys. New keys enter S; a key
// accessed at least once before eviction from S is promoted to M. Ghost
// hits bypass S and go straight to M. Mirrors the S3-FIFO eviction policy
// (Yang et al., 2023) applied here to document n-gram sets instead of PII
// tokens.
type Cache struct {
	mu sync.Mutex

	capacity int
	sTarget  int
	ghostCap int

	entries map[string]*cacheEntry
	sQueue  *list.List
	mQueue  *list.List

	ghostBuf   []string
	ghostSet   map[string]struct{}
	ghostHead  int
	ghostCount int

	backing Store

	Hits, Misses int64
}

// NewCache returns a Cache with the given in-memory capacity, backed by
// store. capacity values below 2 are clamped to 2.
func NewCache(store Store, capacity int) *Cache {
	if capacity < 2 {
		capacity = 2
	}
	sTarget := capacity / 10
	if sTarget < 1 {
		sTarget = 1
	}
	ghostCap := 2 * sTarget
	if ghostCap < 4 {
		ghostCap = 4
	}
	return &Cache{
		capacity: capacity,
		sTarget:  sTarget,
		ghostCap: ghostCap,
		entries:  make(map[string]*cacheEntry, capacity),
		sQueue:   list.New(),
		mQueue:   list.New(),
		ghostBuf: make([]string, ghostCap),
		ghostSet: make(map[string]struct{}, ghostCap),
		backing:  store,
	}
}

// Get returns the n-gram set for path, checking memory then the backing
// store.
func (c *Cache) Get(path string) (map[string]struct{}, bool) {
	c.mu.Lock()
	if e, ok := c.entries[path]; ok {
		if e.freq < 3 {
			e.freq++
		}
		v := e.value
		c.mu.Unlock()
		c.Hits++
		return v, true
	}
	c.mu.Unlock()

	ngrams, ok := c.backing.Get(path)
	if !ok {
		c.Misses++
		return nil, false
	}
	c.insertLocked(path, ngrams)
	c.Hits++
	return ngrams, true
}

// Set stores the n-gram set for path in memory and in the backing store.
func (c *Cache) Set(path string, ngrams map[string]struct{}) {
	c.insertLocked(path, ngrams)
	c.backing.Set(path, ngrams)
}

// Close closes the backing store.
func (c *Cache) Close() error {
	return c.backing.Close()
}

func (c *Cache) insertLocked(key string, value map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		return
	}

	inM := c.ghostContains(key)
	var elem *list.Element
	if inM {
		elem = c.mQueue.PushBack(key)
	} else {
		elem = c.sQueue.PushBack(key)
	}
	c.entries[key] = &cacheEntry{value: value, freq: 0, elem: elem, inM: inM}

	for c.sQueue.Len()+c.mQueue.Len() > c.capacity {
		c.evictOne()
	}
}

func (c *Cache) evictOne() {
	if c.sQueue.Len() > 0 {
		c.evictFromS()
		return
	}
	c.evictFromM()
}

func (c *Cache) evictFromS() {
	front := c.sQueue.Front()
	if front == nil {
		return
	}
	key, ok := front.Value.(string)
	if !ok {
		c.sQueue.Remove(front)
		return
	}
	c.sQueue.Remove(front)

	e, ok := c.entries[key]
	if !ok {
		return
	}

	if e.freq > 0 {
		e.freq = 0
		e.inM = true
		e.elem = c.mQueue.PushBack(key)
		mTarget := c.capacity - c.sTarget
		if c.mQueue.Len() > mTarget {
			c.evictFromM()
		}
	} else {
		delete(c.entries, key)
		c.ghostAdd(key)
	}
}

func (c *Cache) evictFromM() {
	front := c.mQueue.Front()
	if front == nil {
		return
	}
	key, ok := front.Value.(string)
	if !ok {
		c.mQueue.Remove(front)
		return
	}
	c.mQueue.Remove(front)
	delete(c.entries, key)
}

func (c *Cache) ghostContains(key string) bool {
	_, ok := c.ghostSet[key]
	return ok
}

func (c *Cache) ghostAdd(key string) {
	if _, exists := c.ghostSet[key]; exists {
		return
	}
	if c.ghostCount == c.ghostCap {
		oldest := c.ghostBuf[c.ghostHead]
		delete(c.ghostSet, oldest)
		c.ghostHead = (c.ghostHead + 1) % c.ghostCap
		c.ghostCount--
	}
	writeIdx := (c.ghostHead + c.ghostCount) % c.ghostCap
	c.ghostBuf[writeIdx] = key
	c.ghostSet[key] = struct{}{}
	c.ghostCount++
}

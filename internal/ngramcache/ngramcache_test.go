package ngramcache

import (
	"path/filepath"
	"testing"
)

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore()
	ngrams := map[string]struct{}{"a b c": {}}
	s.Set("doc1", ngrams)

	got, ok := s.Get("doc1")
	if !ok {
		t.Fatal("expected hit")
	}
	if _, present := got["a b c"]; !present {
		t.Error("missing expected n-gram")
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	s := NewMemoryStore()
	if _, ok := s.Get("nonexistent"); ok {
		t.Error("expected miss")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	s.Set("doc1", map[string]struct{}{"x": {}})
	s.Delete("doc1")
	if _, ok := s.Get("doc1"); ok {
		t.Error("expected miss after delete")
	}
}

func TestBoltStore_SetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ngrams.db")
	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	defer store.Close()

	ngrams := map[string]struct{}{"alpha beta": {}, "beta gamma": {}}
	store.Set("doc1", ngrams)

	got, ok := store.Get("doc1")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 2 {
		t.Fatalf("got %d n-grams, want 2", len(got))
	}
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ngrams.db")
	store, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	store.Set("doc1", map[string]struct{}{"one two": {}})
	store.Close()

	reopened, err := NewBoltStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("doc1")
	if !ok {
		t.Fatal("expected hit after reopen")
	}
	if _, present := got["one two"]; !present {
		t.Error("missing expected n-gram after reopen")
	}
}

func TestCache_GetAfterSet(t *testing.T) {
	c := NewCache(NewMemoryStore(), 10)
	c.Set("doc1", map[string]struct{}{"x y": {}})

	got, ok := c.Get("doc1")
	if !ok {
		t.Fatal("expected hit")
	}
	if _, present := got["x y"]; !present {
		t.Error("missing expected n-gram")
	}
}

func TestCache_MissCountsAgainstMisses(t *testing.T) {
	c := NewCache(NewMemoryStore(), 10)
	c.Get("nonexistent")
	if c.Misses != 1 {
		t.Errorf("Misses: got %d, want 1", c.Misses)
	}
}

func TestCache_HitCountsAgainstHits(t *testing.T) {
	c := NewCache(NewMemoryStore(), 10)
	c.Set("doc1", map[string]struct{}{"x": {}})
	c.Get("doc1")
	if c.Hits != 1 {
		t.Errorf("Hits: got %d, want 1", c.Hits)
	}
}

func TestCache_EvictsBeyondCapacity(t *testing.T) {
	store := NewMemoryStore()
	c := NewCache(store, 2)

	c.Set("a", map[string]struct{}{"a": {}})
	c.Set("b", map[string]struct{}{"b": {}})
	c.Set("c", map[string]struct{}{"c": {}})

	total := c.sQueue.Len() + c.mQueue.Len()
	if total > 2 {
		t.Errorf("in-memory entries exceed capacity: %d", total)
	}
}

func TestCache_EvictedEntryStillReadableFromBackingStore(t *testing.T) {
	store := NewMemoryStore()
	c := NewCache(store, 2)

	c.Set("a", map[string]struct{}{"a": {}})
	c.Set("b", map[string]struct{}{"b": {}})
	c.Set("c", map[string]struct{}{"c": {}}) // likely evicts "a" from memory

	if _, ok := store.Get("a"); !ok {
		t.Error("evicted entry should still be present in backing store")
	}
}

func TestCache_ClampsSmallCapacity(t *testing.T) {
	c := NewCache(NewMemoryStore(), 0)
	if c.capacity < 2 {
		t.Errorf("capacity should be clamped to at least 2, got %d", c.capacity)
	}
}

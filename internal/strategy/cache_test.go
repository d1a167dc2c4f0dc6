package strategy

import (
	"fmt"
	"testing"
	"time"
)

func TestHintCachePutGet(t *testing.T) {
	cache := NewHintCache(time.Minute, 4)

	cache.Put("https://example.com", Analysis{Strategy: KindUseSearchForm, Confidence: 80})

	hint, ok := cache.Get("https://example.com")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if hint.Analysis.Strategy != KindUseSearchForm {
		t.Errorf("strategy = %q, want %q", hint.Analysis.Strategy, KindUseSearchForm)
	}
	if hint.Analysis.Confidence != 80 {
		t.Errorf("confidence = %d, want 80", hint.Analysis.Confidence)
	}

	if _, ok := cache.Get("https://other.com"); ok {
		t.Error("expected a miss for an unknown origin")
	}
}

func TestHintCacheExpiry(t *testing.T) {
	cache := NewHintCache(time.Minute, 4)

	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put("https://example.com", Analysis{Strategy: KindScrollAndExtract})

	now = now.Add(2 * time.Minute)

	if _, ok := cache.Get("https://example.com"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if cache.Len() != 0 {
		t.Errorf("expired entry was not evicted, len = %d", cache.Len())
	}
}

func TestHintCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewHintCache(time.Minute, 2)

	cache.Put("https://a.com", Analysis{Strategy: KindExtractCurrentPage})
	cache.Put("https://b.com", Analysis{Strategy: KindExtractCurrentPage})

	// Touch a.com so b.com becomes the eviction candidate.
	if _, ok := cache.Get("https://a.com"); !ok {
		t.Fatal("expected a.com to be cached")
	}

	cache.Put("https://c.com", Analysis{Strategy: KindExtractCurrentPage})

	if _, ok := cache.Get("https://a.com"); !ok {
		t.Error("a.com should have survived eviction")
	}
	if _, ok := cache.Get("https://b.com"); ok {
		t.Error("b.com should have been evicted")
	}
	if _, ok := cache.Get("https://c.com"); !ok {
		t.Error("c.com should be cached")
	}
}

func TestHintCacheCapacityBound(t *testing.T) {
	cache := NewHintCache(time.Minute, 8)

	for i := 0; i < 20; i++ {
		cache.Put(fmt.Sprintf("https://site-%d.com", i), Analysis{Strategy: KindExtractCurrentPage})
	}

	if cache.Len() != 8 {
		t.Errorf("len = %d, want 8", cache.Len())
	}
}

package doccache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func countingFetcher(calls *atomic.Int64, fail bool) Fetcher {
	return func(_ context.Context, url string) (string, error) {
		calls.Add(1)
		if fail {
			return "", errors.New("upstream 503")
		}
		return "content of " + url, nil
	}
}

func TestGetOrFetch_FetchesOnce(t *testing.T) {
	var calls atomic.Int64
	cache := New(NewMemoryBackend(), countingFetcher(&calls, false))
	ctx := context.Background()

	url := "https://learn.microsoft.com/en-us/azure/reliability/availability-zones-overview"
	for range 5 {
		doc, err := cache.GetOrFetch(ctx, url)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.URL != url {
			t.Fatalf("doc url = %q, want %q", doc.URL, url)
		}
	}

	if calls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls.Load())
	}
}

func TestGetOrFetch_ConcurrentSingleFetch(t *testing.T) {
	var calls atomic.Int64
	cache := New(NewMemoryBackend(), countingFetcher(&calls, false))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrFetch(ctx, "https://learn.microsoft.com/en-us/entra/fundamentals/whatis"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls.Load())
	}
}

func TestGetOrFetch_DistinctURLsDistinctFetches(t *testing.T) {
	var calls atomic.Int64
	cache := New(NewMemoryBackend(), countingFetcher(&calls, false))
	ctx := context.Background()

	urls := []string{
		"https://learn.microsoft.com/a",
		"https://learn.microsoft.com/b",
		"https://learn.microsoft.com/c",
	}
	for _, u := range urls {
		if _, err := cache.GetOrFetch(ctx, u); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if calls.Load() != int64(len(urls)) {
		t.Fatalf("fetch calls = %d, want %d", calls.Load(), len(urls))
	}
}

func TestGetOrFetch_FailureNotCached(t *testing.T) {
	var calls atomic.Int64
	fail := true
	cache := New(NewMemoryBackend(), func(_ context.Context, url string) (string, error) {
		calls.Add(1)
		if fail {
			return "", errors.New("upstream 503")
		}
		return "ok", nil
	})
	ctx := context.Background()

	url := "https://learn.microsoft.com/flaky"
	_, err := cache.GetOrFetch(ctx, url)
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got: %v", err)
	}

	// The failure must not have been cached; a retry fetches again and succeeds.
	fail = false
	doc, err := cache.GetOrFetch(ctx, url)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if doc.Content != "ok" {
		t.Fatalf("doc content = %q, want ok", doc.Content)
	}
	if calls.Load() != 2 {
		t.Fatalf("fetch calls = %d, want 2", calls.Load())
	}
}

func TestInvalidate_Refetches(t *testing.T) {
	var calls atomic.Int64
	backend := NewMemoryBackend()
	cache := New(backend, countingFetcher(&calls, false))
	ctx := context.Background()

	url := "https://learn.microsoft.com/refresh-me"
	if _, err := cache.GetOrFetch(ctx, url); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.Invalidate(ctx, url); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, err := cache.GetOrFetch(ctx, url); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls.Load() != 2 {
		t.Fatalf("fetch calls = %d, want 2", calls.Load())
	}
}

// Package doccache stores fetched reference documents keyed by source
// URL. A given URL is fetched at most once per process: repeated and
// concurrent lookups collapse onto a single external call, and entries
// never expire within a process lifetime (the corpus is static docs).
package doccache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Document is one cached fetch result. Immutable once written.
type Document struct {
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FetchError reports a failed external fetch. Failures are never cached,
// so a later retry for the same URL may succeed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher performs the actual external retrieval.
type Fetcher func(ctx context.Context, url string) (string, error)

// Backend is the pluggable storage target. Selection happens once at
// startup, never per call.
type Backend interface {
	// Get returns the stored document and true, or ok=false when absent.
	Get(ctx context.Context, url string) (*Document, bool, error)

	// Put stores a document keyed by its exact URL string.
	Put(ctx context.Context, doc *Document) error

	// Close releases backend resources.
	Close() error
}

// Cache fronts a Backend with fetch deduplication.
type Cache struct {
	backend Backend
	fetch   Fetcher
	group   singleflight.Group
}

// New creates a cache over the given backend and fetcher.
func New(backend Backend, fetch Fetcher) *Cache {
	return &Cache{backend: backend, fetch: fetch}
}

// GetOrFetch returns the cached document for url, fetching and storing it
// on first use. Concurrent callers for the same URL share one fetch.
func (c *Cache) GetOrFetch(ctx context.Context, url string) (*Document, error) {
	v, err, _ := c.group.Do(url, func() (any, error) {
		if doc, ok, err := c.backend.Get(ctx, url); err == nil && ok {
			return doc, nil
		}

		content, err := c.fetch(ctx, url)
		if err != nil {
			return nil, &FetchError{URL: url, Err: err}
		}

		doc := &Document{
			URL:       url,
			Content:   content,
			FetchedAt: time.Now().UTC(),
		}
		// A store failure degrades to fetch-per-call, it does not lose
		// the document we already have in hand.
		_ = c.backend.Put(ctx, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

// Invalidate drops the entry for url so the next GetOrFetch refetches.
func (c *Cache) Invalidate(ctx context.Context, url string) error {
	type invalidator interface {
		Delete(ctx context.Context, url string) error
	}
	if inv, ok := c.backend.(invalidator); ok {
		return inv.Delete(ctx, url)
	}
	return fmt.Errorf("backend does not support invalidation")
}

// Close closes the underlying backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

package doccache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend persists documents in an embedded BadgerDB directory, so
// a restarted process keeps its fetched corpus.
type BadgerBackend struct {
	db *badger.DB
}

// NewBadgerBackend opens (or creates) a BadgerDB store at path.
func NewBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logging is too chatty for a cache

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache at %s: %w", path, err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Get(_ context.Context, url string) (*Document, bool, error) {
	var doc Document
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(url))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get %s: %w", url, err)
	}
	return &doc, true, nil
}

func (b *BadgerBackend) Put(_ context.Context, doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(doc.URL), payload)
	})
	if err != nil {
		return fmt.Errorf("badger put %s: %w", doc.URL, err)
	}
	return nil
}

func (b *BadgerBackend) Delete(_ context.Context, url string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(url))
	})
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/kitgore/lyrictype-sub002/common/models"
)

// BadgerStore persists records in an embedded Badger database, keyed
// "<collection>/<id>". It serves single-node deployments that want
// durability without an external store.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

func badgerKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func (s *BadgerStore) Get(ctx context.Context, collection, id string) (*models.ImageRecord, bool, error) {
	var rec models.ImageRecord
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(collection, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("unmarshal record %s/%s: %w", collection, id, err)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get image record %s/%s: %w", collection, id, err)
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (s *BadgerStore) Set(ctx context.Context, collection, id string, rec *models.ImageRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s/%s: %w", collection, id, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(collection, id), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to set image record %s/%s: %w", collection, id, err)
	}
	return nil
}

// Ping verifies the database is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger database is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Package store defines the backing document store for image records
// and its interchangeable backends. Records live in two logical
// collections: artist portraits keyed by artist key, and album art keyed
// by content address. The cache treats records as immutable once
// current, so every backend implements plain get/set with wholesale
// replacement and no delete.
package store

import (
	"context"

	"github.com/kitgore/lyrictype-sub002/common/models"
)

// Collection names for the two record families.
const (
	CollectionPortraits = "portraits"
	CollectionAlbumArt  = "album_art"
)

// Store is the persistence boundary of the image cache.
type Store interface {
	// Get returns the record for (collection, id). A missing record is
	// reported via the bool, not as an error.
	Get(ctx context.Context, collection, id string) (*models.ImageRecord, bool, error)

	// Set writes the record wholesale, replacing any previous value.
	Set(ctx context.Context, collection, id string, rec *models.ImageRecord) error

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

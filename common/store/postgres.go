package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitgore/lyrictype-sub002/common/db"
	"github.com/kitgore/lyrictype-sub002/common/models"
)

// PostgresStore persists records in a single image_records table with
// one row per (collection, id). Statistics ride along as JSONB.
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the image_records table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS image_records (
			collection         TEXT NOT NULL,
			id                 TEXT NOT NULL,
			image_data         TEXT NOT NULL DEFAULT '',
			binary_image_data  TEXT NOT NULL DEFAULT '',
			width              INTEGER NOT NULL DEFAULT 0,
			height             INTEGER NOT NULL DEFAULT 0,
			processing_version TEXT NOT NULL DEFAULT '',
			compression_method TEXT NOT NULL DEFAULT '',
			original_image_url TEXT NOT NULL DEFAULT '',
			stats              JSONB,
			processed_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)
	`

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure image_records schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*models.ImageRecord, bool, error) {
	query := `
		SELECT id, image_data, binary_image_data, width, height,
		       processing_version, compression_method, original_image_url,
		       stats, processed_at
		FROM image_records
		WHERE collection = $1 AND id = $2
	`

	rec := &models.ImageRecord{}
	var statsJSON []byte
	err := s.db.QueryRow(ctx, query, collection, id).Scan(
		&rec.ID,
		&rec.ImageData,
		&rec.BinaryImageData,
		&rec.Width,
		&rec.Height,
		&rec.ProcessingVersion,
		&rec.CompressionMethod,
		&rec.OriginalImageURL,
		&statsJSON,
		&rec.ProcessedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get image record %s/%s: %w", collection, id, err)
	}

	if len(statsJSON) > 0 {
		var stats models.ImageStats
		if err := json.Unmarshal(statsJSON, &stats); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal stats for %s/%s: %w", collection, id, err)
		}
		rec.Stats = &stats
	}
	return rec, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, rec *models.ImageRecord) error {
	var statsJSON []byte
	if rec.Stats != nil {
		var err error
		statsJSON, err = json.Marshal(rec.Stats)
		if err != nil {
			return fmt.Errorf("failed to marshal stats for %s/%s: %w", collection, id, err)
		}
	}

	query := `
		INSERT INTO image_records (
			collection, id, image_data, binary_image_data, width, height,
			processing_version, compression_method, original_image_url,
			stats, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (collection, id) DO UPDATE SET
			image_data         = EXCLUDED.image_data,
			binary_image_data  = EXCLUDED.binary_image_data,
			width              = EXCLUDED.width,
			height             = EXCLUDED.height,
			processing_version = EXCLUDED.processing_version,
			compression_method = EXCLUDED.compression_method,
			original_image_url = EXCLUDED.original_image_url,
			stats              = EXCLUDED.stats,
			processed_at       = EXCLUDED.processed_at
	`

	_, err := s.db.Exec(ctx, query,
		collection,
		id,
		rec.ImageData,
		rec.BinaryImageData,
		rec.Width,
		rec.Height,
		rec.ProcessingVersion,
		rec.CompressionMethod,
		rec.OriginalImageURL,
		statsJSON,
		rec.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set image record %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Health(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

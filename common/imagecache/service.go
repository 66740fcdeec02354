// Package imagecache owns the retrieval state machine for processed
// artwork. Given an artist key or album-art URL it decides whether to
// serve the stored payload, repair a legacy or corrupted record by
// reprocessing from its recorded source, or fail with one of the two
// boundary errors. Records are immutable once current, so every repair
// is a wholesale replace.
package imagecache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kitgore/lyrictype-sub002/common/cas"
	"github.com/kitgore/lyrictype-sub002/common/clients"
	"github.com/kitgore/lyrictype-sub002/common/compress"
	"github.com/kitgore/lyrictype-sub002/common/logger"
	"github.com/kitgore/lyrictype-sub002/common/models"
	"github.com/kitgore/lyrictype-sub002/common/store"
)

// Processor is the remote processing collaborator.
type Processor interface {
	Process(ctx context.Context, req models.ProcessRequest) (*clients.ProcessedImage, error)
}

// Service is the image cache retrieval service.
type Service struct {
	store     store.Store
	processor Processor
	log       *logger.Logger
	group     singleflight.Group
}

// New creates a retrieval service on top of a record store and a
// processing client.
func New(st store.Store, processor Processor, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		processor: processor,
		log:       log.WithComponent("imagecache"),
	}
}

// Metadata describes a served payload.
type Metadata struct {
	Key               string             `json:"key"`
	SourceURL         string             `json:"sourceUrl,omitempty"`
	Width             int                `json:"width"`
	Height            int                `json:"height"`
	ProcessingVersion string             `json:"processingVersion"`
	CompressionMethod string             `json:"compressionMethod"`
	Stats             *models.ImageStats `json:"stats,omitempty"`
}

// Result is a successful retrieval. ImageData is the transport-encoded
// payload exactly as stored, the form consumers decode against the
// metadata's compression method and version tag. Data is the same
// payload already decoded and validated. Cached reports whether the
// payload came straight from the store without a processing round-trip.
type Result struct {
	ImageData string
	Data      []byte
	Cached    bool
	Metadata  Metadata
}

// ArtistPortrait returns the displayable portrait for an artist key.
// sourceURL may be empty when the caller only wants cached data; it is
// required the first time a key is seen.
func (s *Service) ArtistPortrait(ctx context.Context, artistKey, sourceURL string) (*Result, error) {
	if artistKey == "" {
		return nil, fmt.Errorf("artist key is required")
	}
	return s.retrieve(ctx, store.CollectionPortraits, artistKey, sourceURL)
}

// AlbumArt returns the displayable album art for a source URL. The
// record is keyed by content address, so identical art shared between
// songs resolves to one cache entry.
func (s *Service) AlbumArt(ctx context.Context, sourceURL string) (*Result, error) {
	if sourceURL == "" {
		return nil, ErrNoImageData
	}
	return s.retrieve(ctx, store.CollectionAlbumArt, cas.Address(sourceURL), sourceURL)
}

// retrieve coalesces concurrent callers of the same record through
// singleflight, so a burst of requests for one address produces at most
// one processing round-trip.
func (s *Service) retrieve(ctx context.Context, collection, id, sourceURL string) (*Result, error) {
	v, err, _ := s.group.Do(collection+"/"+id, func() (interface{}, error) {
		return s.retrieveOne(ctx, collection, id, sourceURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (s *Service) retrieveOne(ctx context.Context, collection, id, callerURL string) (*Result, error) {
	rec, found, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s/%s: %w", collection, id, err)
	}

	state := classify(rec, found)
	log := s.log.WithFields(map[string]any{
		"collection": collection,
		"id":         id,
		"state":      state.String(),
	})

	switch state {
	case stateCurrent:
		res, err := s.serveCurrent(rec)
		if err == nil {
			log.Debug("serving cached record")
			return res, nil
		}
		// Decode failure. Same remediation as the legacy shapes:
		// reprocess from the recorded source.
		log.Warn("cached record failed to decode, reprocessing", "error", err)
		return s.reprocess(ctx, log, collection, id, reprocessURL(rec, callerURL))

	case stateLegacyBinary, stateLegacyMislabeled:
		log.Info("legacy record, reprocessing from source")
		return s.reprocess(ctx, log, collection, id, reprocessURL(rec, callerURL))

	default: // stateAbsent
		if callerURL == "" {
			log.Debug("no record and no source url")
			return nil, ErrNoImageData
		}
		log.Info("no record, processing from source")
		return s.reprocess(ctx, log, collection, id, callerURL)
	}
}

// serveCurrent decodes a current record's payload, validating it
// against the declared version and dimensions.
func (s *Service) serveCurrent(rec *models.ImageRecord) (*Result, error) {
	want, ok := models.PayloadSize(rec.ProcessingVersion, rec.Width, rec.Height)
	if !ok {
		return nil, fmt.Errorf("unknown processing version %q", rec.ProcessingVersion)
	}

	data, err := compress.DecodePayload(rec.ImageData, rec.CompressionMethod == models.CompressionDeflate)
	if err != nil {
		return nil, err
	}
	if len(data) != want {
		return nil, fmt.Errorf("payload is %d bytes, want %d for %dx%d %s",
			len(data), want, rec.Width, rec.Height, rec.ProcessingVersion)
	}

	return &Result{
		ImageData: rec.ImageData,
		Data:      data,
		Cached:    true,
		Metadata:  metadataFrom(rec),
	}, nil
}

// reprocess drives a processing round-trip and persists the result as
// the new current record. A processing failure persists nothing, so the
// next caller starts from the same state.
func (s *Service) reprocess(ctx context.Context, log *logger.Logger, collection, id, url string) (*Result, error) {
	if url == "" {
		log.Warn("record needs reprocessing but no source url is recorded")
		return nil, ErrNoImageData
	}

	processed, err := s.processor.Process(ctx, models.ProcessRequest{
		URL: url,
		Key: id,
	})
	if err != nil {
		log.Error("processing failed", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProcessingFailed, err)
	}

	rec := recordFrom(id, url, processed)
	if err := s.store.Set(ctx, collection, id, rec); err != nil {
		// The caller still gets their image; the record will be
		// rebuilt on a later request.
		log.Error("failed to persist processed record", "error", err)
	}

	return &Result{
		ImageData: processed.Response.ImageData,
		Data:      processed.Data,
		Cached:    false,
		Metadata:  metadataFrom(rec),
	}, nil
}

// reprocessURL picks the source for a repair: the record's own recorded
// provenance wins over whatever the caller passed, because stale packed
// data must never be trusted but the recorded origin can be.
func reprocessURL(rec *models.ImageRecord, callerURL string) string {
	if rec != nil && rec.OriginalImageURL != "" {
		return rec.OriginalImageURL
	}
	return callerURL
}

func recordFrom(id, url string, processed *clients.ProcessedImage) *models.ImageRecord {
	resp := processed.Response
	return &models.ImageRecord{
		ID:                id,
		ImageData:         resp.ImageData,
		Width:             resp.Width,
		Height:            resp.Height,
		ProcessingVersion: resp.ProcessingVersion,
		CompressionMethod: resp.CompressionMethod,
		OriginalImageURL:  url,
		Stats:             resp.Stats,
		ProcessedAt:       time.Now().UTC(),
	}
}

func metadataFrom(rec *models.ImageRecord) Metadata {
	return Metadata{
		Key:               rec.ID,
		SourceURL:         rec.OriginalImageURL,
		Width:             rec.Width,
		Height:            rec.Height,
		ProcessingVersion: rec.ProcessingVersion,
		CompressionMethod: rec.CompressionMethod,
		Stats:             rec.Stats,
	}
}

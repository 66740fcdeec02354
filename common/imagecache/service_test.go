package imagecache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitgore/lyrictype-sub002/common/clients"
	"github.com/kitgore/lyrictype-sub002/common/compress"
	"github.com/kitgore/lyrictype-sub002/common/imagecache"
	"github.com/kitgore/lyrictype-sub002/common/logger"
	"github.com/kitgore/lyrictype-sub002/common/models"
	"github.com/kitgore/lyrictype-sub002/common/store"
)

// stubProcessor counts calls and returns a canned result or error.
type stubProcessor struct {
	mu    sync.Mutex
	calls int
	last  models.ProcessRequest
	delay time.Duration
	err   error
	out   *clients.ProcessedImage
}

func (p *stubProcessor) Process(ctx context.Context, req models.ProcessRequest) (*clients.ProcessedImage, error) {
	p.mu.Lock()
	p.calls++
	p.last = req
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.out, nil
}

func (p *stubProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *stubProcessor) lastRequest() models.ProcessRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// failingStore wraps a working store but refuses writes.
type failingStore struct {
	store.Store
}

func (f *failingStore) Set(ctx context.Context, collection, id string, rec *models.ImageRecord) error {
	return errors.New("backend write refused")
}

// processedGray builds the processor output for a grayscale plane.
func processedGray(t *testing.T, plane []byte, width, height int) *clients.ProcessedImage {
	t.Helper()
	packed, err := compress.Deflate(plane)
	require.NoError(t, err)

	return &clients.ProcessedImage{
		Data: plane,
		Response: models.ProcessResponse{
			ImageData:         compress.EncodeTransport(packed),
			Width:             width,
			Height:            height,
			ProcessingVersion: models.VersionGrayscale,
			CompressionMethod: models.CompressionDeflate,
			Stats:             &models.ImageStats{MeanBrightness: 127},
		},
	}
}

// currentRecord builds a healthy stored record for a grayscale plane.
func currentRecord(t *testing.T, id, url string, plane []byte, width, height int) *models.ImageRecord {
	t.Helper()
	packed, err := compress.Deflate(plane)
	require.NoError(t, err)

	return &models.ImageRecord{
		ID:                id,
		ImageData:         compress.EncodeTransport(packed),
		Width:             width,
		Height:            height,
		ProcessingVersion: models.VersionGrayscale,
		CompressionMethod: models.CompressionDeflate,
		OriginalImageURL:  url,
		ProcessedAt:       time.Now().UTC(),
	}
}

func newService(st store.Store, proc imagecache.Processor) *imagecache.Service {
	return imagecache.New(st, proc, logger.New("error", "text"))
}

func TestArtistPortraitAbsentWithoutURL(t *testing.T) {
	st := store.NewMemoryStore()
	proc := &stubProcessor{}
	svc := newService(st, proc)

	_, err := svc.ArtistPortrait(context.Background(), "some-artist", "")
	require.ErrorIs(t, err, imagecache.ErrNoImageData)
	assert.Zero(t, proc.callCount())
}

func TestArtistPortraitProcessesAndPersists(t *testing.T) {
	plane := []byte{0, 50, 100, 150, 200, 250}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 3, 2)}
	svc := newService(st, proc)
	ctx := context.Background()

	res, err := svc.ArtistPortrait(ctx, "some-artist", "https://cdn.example.com/portrait.jpg")
	require.NoError(t, err)

	assert.False(t, res.Cached)
	assert.Equal(t, plane, res.Data)
	assert.Equal(t, 3, res.Metadata.Width)
	assert.Equal(t, 2, res.Metadata.Height)
	assert.Equal(t, models.VersionGrayscale, res.Metadata.ProcessingVersion)

	req := proc.lastRequest()
	assert.Equal(t, "https://cdn.example.com/portrait.jpg", req.URL)
	assert.Equal(t, "some-artist", req.Key)

	rec, found, err := st.Get(ctx, store.CollectionPortraits, "some-artist")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.CurrentVersion, rec.ProcessingVersion)
	assert.Equal(t, "https://cdn.example.com/portrait.jpg", rec.OriginalImageURL)
	assert.NotEmpty(t, rec.ImageData)
	assert.Equal(t, rec.ImageData, res.ImageData, "serves the same encoded payload it stores")
	assert.Empty(t, rec.BinaryImageData)
	assert.False(t, rec.ProcessedAt.IsZero())
}

func TestArtistPortraitServedFromCache(t *testing.T) {
	plane := []byte{1, 2, 3, 4}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2)}
	svc := newService(st, proc)
	ctx := context.Background()

	first, err := svc.ArtistPortrait(ctx, "artist", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := svc.ArtistPortrait(ctx, "artist", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, plane, second.Data)
	assert.Equal(t, 1, proc.callCount(), "cached serve must not call the processor")
}

func TestAlbumArtEmptyURL(t *testing.T) {
	svc := newService(store.NewMemoryStore(), &stubProcessor{})

	_, err := svc.AlbumArt(context.Background(), "")
	require.ErrorIs(t, err, imagecache.ErrNoImageData)
}

// Two songs referencing the same provider hash must share one record.
func TestAlbumArtDedupesSharedArt(t *testing.T) {
	plane := []byte{9, 8, 7, 6}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2)}
	svc := newService(st, proc)
	ctx := context.Background()

	first, err := svc.AlbumArt(ctx, "https://a.example.com/3f9a0c27b1de4e58a6c21d0f4b7e9a11.600x600.jpg")
	require.NoError(t, err)
	second, err := svc.AlbumArt(ctx, "https://b.example.com/3f9a0c27b1de4e58a6c21d0f4b7e9a11.1000x1000.jpg")
	require.NoError(t, err)

	assert.Equal(t, 1, proc.callCount(), "same content address must process once")
	assert.Equal(t, 1, st.Len(), "same content address must store once")
	assert.Equal(t, first.Data, second.Data)
	assert.True(t, second.Cached)
	assert.Equal(t, "3f9a0c27b1de4e58a6c21d0f4b7e9a11", second.Metadata.Key)
}

func TestLegacyBinaryReprocessedFromRecordedURL(t *testing.T) {
	plane := []byte{5, 5, 5, 5}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2)}
	svc := newService(st, proc)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.CollectionPortraits, "artist", &models.ImageRecord{
		ID:                "artist",
		BinaryImageData:   "stale packed bits",
		ProcessingVersion: models.VersionBinaryPacked,
		Width:             8,
		Height:            8,
		OriginalImageURL:  "https://cdn.example.com/recorded.jpg",
	}))

	res, err := svc.ArtistPortrait(ctx, "artist", "https://cdn.example.com/caller.jpg")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, plane, res.Data)

	// Repair must use the record's own provenance, never the stale
	// packed data and not the caller's URL.
	assert.Equal(t, "https://cdn.example.com/recorded.jpg", proc.lastRequest().URL)

	rec, found, err := st.Get(ctx, store.CollectionPortraits, "artist")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.CurrentVersion, rec.ProcessingVersion)
	assert.Empty(t, rec.BinaryImageData, "replace is wholesale")
}

func TestLegacyMislabeledReprocessed(t *testing.T) {
	plane := []byte{7, 7, 7, 7}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2)}
	svc := newService(st, proc)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.CollectionAlbumArt, "3f9a0c27b1de4e58a6c21d0f4b7e9a11", &models.ImageRecord{
		ID:                "3f9a0c27b1de4e58a6c21d0f4b7e9a11",
		ImageData:         "grayscale-shaped but mislabeled",
		ProcessingVersion: models.VersionBinaryPacked,
		Width:             2,
		Height:            2,
		OriginalImageURL:  "https://cdn.example.com/3f9a0c27b1de4e58a6c21d0f4b7e9a11.jpg",
	}))

	res, err := svc.AlbumArt(ctx, "https://cdn.example.com/3f9a0c27b1de4e58a6c21d0f4b7e9a11.jpg")
	require.NoError(t, err)
	assert.Equal(t, plane, res.Data)
	assert.Equal(t, 1, proc.callCount())
}

func TestCurrentRecordMissingDimensionsReprocessed(t *testing.T) {
	plane := []byte{3, 3, 3, 3}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2)}
	svc := newService(st, proc)
	ctx := context.Background()

	rec := currentRecord(t, "artist", "https://cdn.example.com/a.jpg", plane, 2, 2)
	rec.Width = 0
	require.NoError(t, st.Set(ctx, store.CollectionPortraits, "artist", rec))

	res, err := svc.ArtistPortrait(ctx, "artist", "")
	require.NoError(t, err)
	assert.Equal(t, 1, proc.callCount(), "missing dimensions cannot be trusted as current")
	assert.Equal(t, plane, res.Data)
}

// The three corruption classes a current-looking record can hide:
// unparseable transport encoding, a broken compressed stream, and a
// payload whose length contradicts the declared dimensions. All must
// self-heal by reprocessing from the recorded source.
func TestDecodeFailureSelfHeals(t *testing.T) {
	freshPlane := []byte{11, 12, 13, 14}

	corrupt := map[string]func(t *testing.T) *models.ImageRecord{
		"bad transport encoding": func(t *testing.T) *models.ImageRecord {
			rec := currentRecord(t, "artist", "https://cdn.example.com/src.jpg", freshPlane, 2, 2)
			rec.ImageData = "!!!not base64!!!"
			return rec
		},
		"broken compressed stream": func(t *testing.T) *models.ImageRecord {
			rec := currentRecord(t, "artist", "https://cdn.example.com/src.jpg", freshPlane, 2, 2)
			rec.ImageData = compress.EncodeTransport([]byte("not a zlib stream"))
			return rec
		},
		"length contradicts dimensions": func(t *testing.T) *models.ImageRecord {
			rec := currentRecord(t, "artist", "https://cdn.example.com/src.jpg", []byte{1, 2, 3}, 2, 2)
			return rec
		},
	}

	for name, build := range corrupt {
		t.Run(name, func(t *testing.T) {
			st := store.NewMemoryStore()
			proc := &stubProcessor{out: processedGray(t, freshPlane, 2, 2)}
			svc := newService(st, proc)
			ctx := context.Background()

			require.NoError(t, st.Set(ctx, store.CollectionPortraits, "artist", build(t)))

			// No caller URL: the recorded source must carry the repair.
			res, err := svc.ArtistPortrait(ctx, "artist", "")
			require.NoError(t, err)
			assert.Equal(t, freshPlane, res.Data)
			assert.False(t, res.Cached)
			assert.Equal(t, "https://cdn.example.com/src.jpg", proc.lastRequest().URL)

			healed, found, err := st.Get(ctx, store.CollectionPortraits, "artist")
			require.NoError(t, err)
			require.True(t, found)
			got, err := compress.DecodePayload(healed.ImageData, healed.CompressionMethod == models.CompressionDeflate)
			require.NoError(t, err)
			assert.Equal(t, freshPlane, got)
		})
	}
}

func TestProcessingFailureNotPersisted(t *testing.T) {
	st := store.NewMemoryStore()
	proc := &stubProcessor{err: errors.New("processor exploded")}
	svc := newService(st, proc)

	_, err := svc.ArtistPortrait(context.Background(), "artist", "https://cdn.example.com/a.jpg")
	require.ErrorIs(t, err, imagecache.ErrProcessingFailed)
	assert.Contains(t, err.Error(), "processor exploded")
	assert.Zero(t, st.Len(), "failures must not persist partial records")
}

func TestPersistFailureStillServes(t *testing.T) {
	plane := []byte{4, 3, 2, 1}
	st := &failingStore{Store: store.NewMemoryStore()}
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2)}
	svc := newService(st, proc)

	res, err := svc.ArtistPortrait(context.Background(), "artist", "https://cdn.example.com/a.jpg")
	require.NoError(t, err, "a failed write must not cost the caller their image")
	assert.Equal(t, plane, res.Data)
	assert.False(t, res.Cached)
}

func TestLegacyRecordWithoutURLIsTerminal(t *testing.T) {
	st := store.NewMemoryStore()
	proc := &stubProcessor{}
	svc := newService(st, proc)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.CollectionPortraits, "artist", &models.ImageRecord{
		ID:              "artist",
		BinaryImageData: "stale bits with no provenance",
	}))

	_, err := svc.ArtistPortrait(ctx, "artist", "")
	require.ErrorIs(t, err, imagecache.ErrNoImageData)
	assert.Zero(t, proc.callCount())
}

func TestLegacyRecordFallsBackToCallerURL(t *testing.T) {
	plane := []byte{2, 4, 6, 8}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2)}
	svc := newService(st, proc)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.CollectionPortraits, "artist", &models.ImageRecord{
		ID:              "artist",
		BinaryImageData: "stale bits with no provenance",
	}))

	res, err := svc.ArtistPortrait(ctx, "artist", "https://cdn.example.com/caller.jpg")
	require.NoError(t, err)
	assert.Equal(t, plane, res.Data)
	assert.Equal(t, "https://cdn.example.com/caller.jpg", proc.lastRequest().URL)
}

func TestServeCurrentUsesStoredPayload(t *testing.T) {
	plane := []byte{100, 110, 120, 130}
	st := store.NewMemoryStore()
	proc := &stubProcessor{err: errors.New("must not be called")}
	svc := newService(st, proc)
	ctx := context.Background()

	rec := currentRecord(t, "k", "https://cdn.example.com/k.jpg", plane, 2, 2)
	rec.Stats = &models.ImageStats{MeanBrightness: 115}
	require.NoError(t, st.Set(ctx, store.CollectionPortraits, "k", rec))

	res, err := svc.ArtistPortrait(ctx, "k", "")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, plane, res.Data)
	assert.Equal(t, rec.ImageData, res.ImageData)
	assert.Equal(t, "k", res.Metadata.Key)
	assert.Equal(t, "https://cdn.example.com/k.jpg", res.Metadata.SourceURL)
	require.NotNil(t, res.Metadata.Stats)
	assert.Equal(t, float64(115), res.Metadata.Stats.MeanBrightness)
	assert.Zero(t, proc.callCount())
}

func TestConcurrentRequestsCoalesce(t *testing.T) {
	plane := []byte{1, 1, 1, 1}
	st := store.NewMemoryStore()
	proc := &stubProcessor{out: processedGray(t, plane, 2, 2), delay: 50 * time.Millisecond}
	svc := newService(st, proc)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*imagecache.Result, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ArtistPortrait(context.Background(), "artist", "https://cdn.example.com/a.jpg")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, plane, results[i].Data)
	}
	assert.Equal(t, 1, proc.callCount(), "concurrent callers of one address must coalesce")
}

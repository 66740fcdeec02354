// Package worker implements the image processing pipeline: fetch the
// source, transform pixels, pack, compress, and frame the result for
// transport. It is the server half of the processing contract the cache
// consumes.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// Source images arrive in whatever format the provider serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kitgore/lyrictype-sub002/common/bitpack"
	"github.com/kitgore/lyrictype-sub002/common/clients"
	"github.com/kitgore/lyrictype-sub002/common/compress"
	"github.com/kitgore/lyrictype-sub002/common/dither"
	"github.com/kitgore/lyrictype-sub002/common/logger"
	"github.com/kitgore/lyrictype-sub002/common/models"
)

// Pipeline failure classes. Fetch failures point at the source or the
// network; decode failures mean the bytes are not a supported image.
var (
	ErrFetch  = errors.New("failed to fetch source image")
	ErrDecode = errors.New("failed to decode source image")
)

// Processor turns source images into packed, compressed payloads.
type Processor struct {
	http     *clients.HTTPClient
	log      *logger.Logger
	maxBytes int64
}

// New creates a processor. maxBytes bounds how much of a source image
// will be downloaded before giving up.
func New(log *logger.Logger, timeout time.Duration, maxBytes int64) *Processor {
	httpClient := &http.Client{
		Timeout: timeout,
	}

	return &Processor{
		http:     clients.NewHTTPClient(httpClient, log),
		log:      log.WithComponent("worker"),
		maxBytes: maxBytes,
	}
}

// Process fetches one source image and runs it through the pipeline.
func (p *Processor) Process(ctx context.Context, req models.ProcessRequest) (*models.ProcessResponse, error) {
	src, err := p.fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	resp, err := Encode(src, req.Mode, req.Size)
	if err != nil {
		return nil, err
	}

	p.log.Info("image processed",
		"key", req.Key,
		"version", resp.ProcessingVersion,
		"width", resp.Width,
		"height", resp.Height,
		"packed_bytes", resp.Stats.PackedBytes,
		"compressed_bytes", resp.Stats.CompressedBytes)

	return resp, nil
}

// Encode runs an already decoded image through the pixel pipeline. Mode
// selects the transform; an empty mode means grayscale. A positive size
// bounds the longer output edge, zero keeps native resolution.
func Encode(src image.Image, mode string, size int) (*models.ProcessResponse, error) {
	rgba := dither.ToRGBA(src)
	rgba = dither.Downscale(rgba, size)

	b := rgba.Bounds()
	width, height := b.Dx(), b.Dy()

	if mode == "" {
		mode = models.ModeGrayscale
	}

	var packed []byte
	var version string
	var stats models.ImageStats

	switch mode {
	case models.ModeBinary:
		bits := dither.DitherAtkinson(rgba)
		packed = bitpack.PackBits(bits)
		version = models.VersionBinaryPacked

		var light int
		for _, bit := range bits {
			if bit != 0 {
				light++
			}
		}
		if n := float64(len(bits)); n > 0 {
			stats.LightFraction = float64(light) / n
			stats.DarkFraction = 1 - stats.LightFraction
			stats.MeanBrightness = 255 * stats.LightFraction
		}

	case models.ModeGrayscale:
		plane := dither.QuantizeGray(rgba)
		packed = bitpack.PackGray(plane)
		version = models.VersionGrayscale
		stats.MeanBrightness, stats.DarkFraction, stats.LightFraction = dither.GrayStats(plane)

	default:
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}

	deflated, err := compress.Deflate(packed)
	if err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}

	stats.PackedBytes = len(packed)
	stats.CompressedBytes = len(deflated)
	if len(deflated) > 0 {
		stats.CompressionRatio = float64(len(packed)) / float64(len(deflated))
	}

	return &models.ProcessResponse{
		ImageData:         compress.EncodeTransport(deflated),
		Width:             width,
		Height:            height,
		ProcessingVersion: version,
		CompressionMethod: models.CompressionDeflate,
		Stats:             &stats,
	}, nil
}

// fetch downloads and decodes the source image, refusing anything over
// the byte bound.
func (p *Processor) fetch(ctx context.Context, url string) (image.Image, error) {
	resp, err := p.http.DoRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status=%d", ErrFetch, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(raw)) > p.maxBytes {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", ErrFetch, p.maxBytes)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	p.log.Debug("fetched source image", "url", url, "format", format, "bytes", len(raw))
	return src, nil
}

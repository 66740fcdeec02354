package models

import "time"

// Processing version tags. The tag stored on a record is the discriminant
// for how its payload bytes are laid out.
const (
	// VersionBinaryPacked is the legacy 1-bit format: eight pixels per
	// byte, MSB first, row-major.
	VersionBinaryPacked = "1.1"

	// VersionGrayscale is the current format: one luminance byte per
	// pixel, row-major.
	VersionGrayscale = "2.0"

	// CurrentVersion is the tag newly processed records carry.
	CurrentVersion = VersionGrayscale
)

// Compression methods recorded in a record's compressionMethod field.
// Anything absent or unrecognized is treated as CompressionNone.
const (
	CompressionNone    = "none"
	CompressionDeflate = "deflate"
)

// Pixel transform modes accepted by the processing worker.
const (
	ModeBinary    = "binary"
	ModeGrayscale = "grayscale"
)

// ImageRecord is one processed image document in the backing store.
// Portraits are keyed by artist key, album art by content address.
// Field names are the JSON contract shared with the web client.
type ImageRecord struct {
	ID string `json:"id,omitempty"`

	// ImageData holds the transport-encoded payload: packed pixels,
	// compressed per CompressionMethod, then base64 text.
	ImageData string `json:"imageData,omitempty"`

	// BinaryImageData is where pre-grayscale records kept their payload.
	// Its presence without a current version tag marks a legacy record.
	BinaryImageData string `json:"binaryImageData,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	ProcessingVersion string `json:"processingVersion,omitempty"`
	CompressionMethod string `json:"compressionMethod,omitempty"`

	// OriginalImageURL is the provenance of the source pixels. Every
	// reprocessing pass fetches from here, never from stale payload.
	OriginalImageURL string `json:"originalImageUrl,omitempty"`

	Stats *ImageStats `json:"statistics,omitempty"`

	ProcessedAt time.Time `json:"processedAt,omitempty"`
}

// ImageStats are informational numbers recomputed on every processing
// pass. They are only meaningful when the record's ProcessingVersion is
// current.
type ImageStats struct {
	PackedBytes      int     `json:"packedSize"`
	CompressedBytes  int     `json:"compressedSize"`
	CompressionRatio float64 `json:"compressionRatio"`
	MeanBrightness   float64 `json:"meanBrightness"`
	DarkFraction     float64 `json:"darkPixelRatio"`
	LightFraction    float64 `json:"lightPixelRatio"`
}

// ProcessRequest is the request accepted by the processing worker.
type ProcessRequest struct {
	// URL of the source image to fetch and transform.
	URL string `json:"url"`

	// Key the caller will store the result under (content address or
	// artist key). Carried for logs and tracing, not for routing.
	Key string `json:"key"`

	// Size bounds the longer image edge. Zero means native resolution.
	Size int `json:"size,omitempty"`

	// Mode selects the pixel transform. Empty defaults to grayscale.
	Mode string `json:"mode,omitempty"`
}

// ProcessResponse is the response produced by the processing worker.
type ProcessResponse struct {
	ImageData         string      `json:"imageData"`
	Width             int         `json:"width"`
	Height            int         `json:"height"`
	ProcessingVersion string      `json:"processingVersion"`
	CompressionMethod string      `json:"compressionMethod"`
	Stats             *ImageStats `json:"statistics,omitempty"`
}

// PayloadSize returns the packed payload length a version tag implies for
// the given dimensions. ok is false for unknown tags.
func PayloadSize(version string, width, height int) (size int, ok bool) {
	switch version {
	case VersionBinaryPacked:
		return (width*height + 7) / 8, true
	case VersionGrayscale:
		return width * height, true
	}
	return 0, false
}

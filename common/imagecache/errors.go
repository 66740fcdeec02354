package imagecache

import "errors"

// Sentinel errors crossing the cache boundary. Decode failures never
// appear here: they are absorbed and repaired by reprocessing.
var (
	// ErrNoImageData means there is no record and no source URL to
	// build one from. Terminal; retrying without a URL cannot succeed.
	ErrNoImageData = errors.New("no image data available")

	// ErrProcessingFailed means the remote processor was unreachable or
	// rejected the request. Nothing is persisted; the caller may retry.
	ErrProcessingFailed = errors.New("image processing failed")
)

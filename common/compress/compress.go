// Package compress implements the payload codec used on cache records
// and on the processing wire: zlib-stream compression under the
// "deflate" method label, plus the chunk-safe base64 transport encoding.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Deflate compresses raw with a zlib stream at the default level.
func Deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := zlib.NewWriter(&buf)
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, fmt.Errorf("compress: deflate write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("compress: deflate close: %w", err)
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a zlib stream produced by Deflate.
func Inflate(data []byte) ([]byte, error) {
	dec, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compress: inflate open: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("compress: inflate read: %w", err)
	}
	return raw, nil
}

// DecodePayload reverses the transport encoding and, when deflate is
// set, the compression. Failures here are recoverable: the caller
// reprocesses from source rather than serving a garbled payload.
func DecodePayload(encoded string, deflate bool) ([]byte, error) {
	raw, err := DecodeTransport(encoded)
	if err != nil {
		return nil, err
	}
	if deflate {
		return Inflate(raw)
	}
	return raw, nil
}

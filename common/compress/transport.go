package compress

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// transportChunk is the slice size the encoder feeds to base64. It is a
// multiple of three, so chunk boundaries never force mid-stream padding
// and the concatenated output is identical to encoding in one pass.
const transportChunk = 3072

// EncodeTransport base64-encodes data in fixed chunks. Large payloads
// encode without holding a second full-size buffer of intermediate
// state, and the output is standard base64 regardless of chunking.
func EncodeTransport(data []byte) string {
	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(data)))
	for len(data) > 0 {
		n := transportChunk
		if n > len(data) {
			n = len(data)
		}
		sb.WriteString(base64.StdEncoding.EncodeToString(data[:n]))
		data = data[n:]
	}
	return sb.String()
}

// DecodeTransport reverses EncodeTransport. Any malformed input reports
// an error rather than a partial payload.
func DecodeTransport(s string) ([]byte, error) {
	dec := base64.NewDecoder(base64.StdEncoding, strings.NewReader(s))
	var out bytes.Buffer
	buf := make([]byte, transportChunk)
	for {
		n, err := dec.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("compress: transport decode: %w", err)
		}
	}
	return out.Bytes(), nil
}

// Package bitpack converts per-pixel plane values into the packed wire
// layout and back. A 1-bit plane packs eight pixels per byte, most
// significant bit first, row-major, with zero padding bits in the final
// byte. The 8-bit grayscale layout is one byte per pixel.
package bitpack

import "fmt"

// PackBits packs a plane of 0/1 decisions into ceil(len/8) bytes. Any
// nonzero value counts as a set bit.
func PackBits(plane []uint8) []byte {
	packed := make([]byte, (len(plane)+7)/8)
	for i, v := range plane {
		if v != 0 {
			packed[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return packed
}

// UnpackBits expands packed bytes back into n per-pixel values.
func UnpackBits(packed []byte, n int) ([]uint8, error) {
	need := (n + 7) / 8
	if len(packed) < need {
		return nil, fmt.Errorf("bitpack: %d bytes cannot hold %d pixels (need %d)", len(packed), n, need)
	}
	plane := make([]uint8, n)
	for i := range plane {
		if packed[i/8]&(1<<(7-uint(i%8))) != 0 {
			plane[i] = 1
		}
	}
	return plane, nil
}

// PackGray returns the grayscale wire form of plane, which is the plane
// itself copied so callers cannot alias the cache payload.
func PackGray(plane []uint8) []byte {
	out := make([]byte, len(plane))
	copy(out, plane)
	return out
}

// UnpackGray validates that data holds exactly n grayscale pixels.
func UnpackGray(data []byte, n int) ([]uint8, error) {
	if len(data) != n {
		return nil, fmt.Errorf("bitpack: grayscale payload is %d bytes, want %d", len(data), n)
	}
	plane := make([]uint8, n)
	copy(plane, data)
	return plane, nil
}

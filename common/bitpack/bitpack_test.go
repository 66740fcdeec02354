package bitpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackBitsMSBFirst(t *testing.T) {
	packed := PackBits([]uint8{1, 0, 1, 0, 0, 1, 1, 1})
	assert.Equal(t, []byte{0xA7}, packed)
}

func TestPackBitsPadsFinalByte(t *testing.T) {
	// Twelve set pixels: full first byte, high nibble of the second.
	plane := make([]uint8, 12)
	for i := range plane {
		plane[i] = 1
	}

	packed := PackBits(plane)
	assert.Equal(t, []byte{0xFF, 0xF0}, packed)
}

func TestPackBitsAllWhiteRow(t *testing.T) {
	// A 4×2 all-light plane fits exactly one byte.
	plane := []uint8{1, 1, 1, 1, 1, 1, 1, 1}
	assert.Equal(t, []byte{0xFF}, PackBits(plane))

	// 4×4 needs two.
	plane = append(plane, plane...)
	assert.Equal(t, []byte{0xFF, 0xFF}, PackBits(plane))
}

func TestPackBitsTreatsNonzeroAsSet(t *testing.T) {
	packed := PackBits([]uint8{255, 0, 7, 0, 0, 0, 0, 0})
	assert.Equal(t, []byte{0xA0}, packed)
}

func TestBitsRoundTrip(t *testing.T) {
	for n := 1; n <= 17; n++ {
		plane := make([]uint8, n)
		for i := range plane {
			plane[i] = uint8((i*i + n) % 2)
		}

		got, err := UnpackBits(PackBits(plane), n)
		require.NoError(t, err, "n=%d", n)
		assert.Equal(t, plane, got, "n=%d", n)
	}
}

func TestUnpackBitsShortBuffer(t *testing.T) {
	_, err := UnpackBits([]byte{0xFF}, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot hold 9 pixels")
}

func TestGrayRoundTrip(t *testing.T) {
	plane := []uint8{0, 1, 127, 128, 254, 255}

	data := PackGray(plane)
	got, err := UnpackGray(data, len(plane))
	require.NoError(t, err)
	assert.Equal(t, plane, got)

	// The wire form must not alias the input.
	data[0] = 99
	assert.Equal(t, uint8(0), plane[0])
}

func TestUnpackGrayLengthMismatch(t *testing.T) {
	_, err := UnpackGray([]byte{1, 2, 3}, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 bytes, want 4")
}

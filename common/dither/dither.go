// Package dither implements the pixel transforms behind the e-ink style
// artwork rendering: Atkinson error-diffusion down to a 1-bit plane, and
// plain 8-bit grayscale quantization. Every transform is a pure function
// of the input pixels and is bit-exact deterministic, because the output
// is content-addressed and cached.
package dither

import (
	"image"
	"image/draw"
)

// Threshold separates dark from light. Luminance at or above it maps to a
// light pixel (bit 1).
const Threshold = 128

// Luminance returns the integer Rec.601 luma (0..255) of one pixel.
func Luminance(r, g, b uint8) uint8 {
	return uint8((299*int32(r) + 587*int32(g) + 114*int32(b) + 500) / 1000)
}

// ToRGBA copies any image.Image into an *image.RGBA anchored at (0,0).
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// QuantizeGray converts src to one luminance byte per pixel, row-major.
func QuantizeGray(src *image.RGBA) []uint8 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			plane[y*w+x] = Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
		}
	}
	return plane
}

// DitherAtkinson reduces src to one value per pixel, 1 = light and
// 0 = dark. Each pixel is thresholded at 128 and one eighth of the
// quantization error is pushed to six forward neighbors:
//
//	        x   +1  +2
//	-1  +1  +1
//	    +2
//
// scanning left to right, top to bottom. Neighbors outside the image are
// skipped with no renormalization. Error arithmetic is integer so the
// result is identical on every platform.
func DitherAtkinson(src *image.RGBA) []uint8 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	// Working copy in int32: accumulated error can push values out of
	// the 0..255 range before a pixel is visited.
	buf := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			buf[y*w+x] = int32(Luminance(src.Pix[i], src.Pix[i+1], src.Pix[i+2]))
		}
	}

	bits := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			old := buf[i]
			var quantized int32
			if old >= Threshold {
				quantized = 255
				bits[i] = 1
			}
			if err := (old - quantized) / 8; err != 0 {
				diffuse(buf, w, h, x+1, y, err)
				diffuse(buf, w, h, x+2, y, err)
				diffuse(buf, w, h, x-1, y+1, err)
				diffuse(buf, w, h, x, y+1, err)
				diffuse(buf, w, h, x+1, y+1, err)
				diffuse(buf, w, h, x, y+2, err)
			}
		}
	}
	return bits
}

func diffuse(buf []int32, w, h, x, y int, err int32) {
	if x < 0 || x >= w || y >= h {
		return
	}
	buf[y*w+x] += err
}

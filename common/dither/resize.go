package dither

import "image"

// Downscale area-averages src so its longer edge is at most maxDim,
// preserving aspect ratio. Images already inside the bound, or a maxDim
// of zero or less, return src unchanged. Accumulation is integer with
// rounding, keeping the output deterministic.
func Downscale(src *image.RGBA, maxDim int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return src
	}

	outW, outH := maxDim, maxDim
	if w >= h {
		outH = h * maxDim / w
	} else {
		outW = w * maxDim / h
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for oy := 0; oy < outH; oy++ {
		y0 := oy * h / outH
		y1 := (oy + 1) * h / outH
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for ox := 0; ox < outW; ox++ {
			x0 := ox * w / outW
			x1 := (ox + 1) * w / outW
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var r, g, bl, a, n int64
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					i := src.PixOffset(b.Min.X+sx, b.Min.Y+sy)
					r += int64(src.Pix[i])
					g += int64(src.Pix[i+1])
					bl += int64(src.Pix[i+2])
					a += int64(src.Pix[i+3])
					n++
				}
			}

			o := dst.PixOffset(ox, oy)
			dst.Pix[o] = uint8((r + n/2) / n)
			dst.Pix[o+1] = uint8((g + n/2) / n)
			dst.Pix[o+2] = uint8((bl + n/2) / n)
			dst.Pix[o+3] = uint8((a + n/2) / n)
		}
	}
	return dst
}

package dither

// Brightness cutoffs for the informational statistics: a pixel counts as
// dark below DarkThreshold and as light at or above LightThreshold.
const (
	DarkThreshold  = 64
	LightThreshold = 192
)

// GrayStats summarizes a grayscale plane: mean brightness plus the
// fractions of pixels under the dark cutoff and at or over the light one.
func GrayStats(plane []uint8) (mean, darkFrac, lightFrac float64) {
	if len(plane) == 0 {
		return 0, 0, 0
	}
	var sum, dark, light int64
	for _, v := range plane {
		sum += int64(v)
		if v < DarkThreshold {
			dark++
		}
		if v >= LightThreshold {
			light++
		}
	}
	n := float64(len(plane))
	return float64(sum) / n, float64(dark) / n, float64(light) / n
}

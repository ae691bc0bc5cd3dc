package lmath

import "math"

// Some functions that only operate on basic types, that are useful

func Clamp01(f float64) float64 {
	if f < 0.0 { return 0.0 }
	if f > 1.0 { return 1.0 }
	return f
}

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// `f` is assumed to be in the range [0,1]
func GammaExpand(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055 * math.Pow(f, 1.0/2.4) - 0.055
}

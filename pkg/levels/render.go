package levels

import(
	"math"

	"github.com/calvinkuo/levelmatch/pkg/lmath"
)

// Render maps an image through one Adjustment per channel. Every
// parameter set is validated before any pixel work starts - invalid
// parameters are an error here, never silently patched up. The mapping
// itself goes through a lookup table sized to the image's native depth,
// the way editors bake a levels adjustment into a point table.
// Out-of-range plane values clamp into [0,1] first; NaN renders as
// black.
func Render(in Planes, adjs []Adjustment) (Planes, error) {
	if in.Shape().Unusable() {
		return Planes{}, &DimensionError{Op: "render", Got: in.Shape()}
	}
	if len(adjs) != len(in.Chans) {
		return Planes{}, &DimensionError{Op: "render",
			Got: in.Shape(), Ref: Shape{W: in.Dx(), H: in.Dy(), C: len(adjs)}}
	}
	for _, adj := range adjs {
		if err := adj.Validate(); err != nil {
			return Planes{}, err
		}
	}

	out := NewPlanes(in.Mode, in.Depth, in.Dx(), in.Dy())
	for c := range in.Chans {
		lut := buildLUT(adjs[c], in.Depth)
		n := float64(len(lut) - 1)
		src := in.Chans[c].Values()
		dst := out.Chans[c].Values()
		for i, v := range src {
			if math.IsNaN(v) {
				v = 0.0 // the clamp can't catch NaN
			}
			dst[i] = lut[int(lmath.Clamp01(v)*n + 0.5)]
		}
	}
	return out, nil
}

// buildLUT tabulates the transfer function at every representable
// intensity for the given depth.
func buildLUT(a Adjustment, depth int) []float64 {
	n := 256
	if depth > 8 {
		n = 65536
	}
	lut := make([]float64, n)
	for i := range lut {
		lut[i] = a.Apply(float64(i) / float64(n-1))
	}
	return lut
}

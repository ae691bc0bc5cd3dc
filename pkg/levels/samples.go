package levels

import(
	"github.com/codahale/hdrhistogram"
)

// histMax is the integer domain the quantile sketches work in. 16 bits
// covers every depth we decode.
const histMax = 65535

// A SampleSet holds paired source/reference intensities for one
// channel, both in [0,1]. X[i] and Y[i] describe the same pixel (or the
// same quantile, in histogram mode).
type SampleSet struct {
	X []float64 // source
	Y []float64 // reference
}

// ExtractSamples pairs up the intensities of the source and reference
// images, channel by channel. The pairing is positional: if the
// reference has different pixel dimensions it is first resampled onto
// the source's grid, which is an approximation - interpolation invents
// intensities the reference never had.
//
// In histogram mode the pairing is by quantile instead: the i-th
// quantile of the source pairs with the i-th quantile of the reference.
// That ignores pixel positions entirely, so it also works when the two
// images aren't pixel-aligned.
//
// Pairs with a non-finite value on either side are dropped.
func ExtractSamples(src, ref Planes, cfg Config) ([]SampleSet, error) {
	if src.Shape().Unusable() {
		return nil, &DimensionError{Op: "extract samples", Got: src.Shape()}
	}
	if ref.Shape().Unusable() {
		return nil, &DimensionError{Op: "extract samples", Got: ref.Shape()}
	}
	if len(src.Chans) != len(ref.Chans) {
		return nil, &DimensionError{Op: "extract samples", Got: src.Shape(), Ref: ref.Shape()}
	}

	if src.Dx() != ref.Dx() || src.Dy() != ref.Dy() {
		ref = ref.Resample(src.Dx(), src.Dy(), cfg.GetResampler())
	}

	sets := make([]SampleSet, len(src.Chans))
	for c := range src.Chans {
		x, y := finitePairs(src.Chans[c].Values(), ref.Chans[c].Values())
		if cfg.FitHistogram {
			x, y = quantilePairs(x, y, cfg.Samples)
		}
		sets[c] = SampleSet{X: x, Y: y}
	}
	return sets, nil
}

func finitePairs(xs, ys []float64) ([]float64, []float64) {
	x := make([]float64, 0, len(xs))
	y := make([]float64, 0, len(ys))
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		x = append(x, xs[i])
		y = append(y, ys[i])
	}
	return x, y
}

// quantilePairs distills two sample slices down to n paired quantiles,
// the way an editor's histogram view lines up two exposures. The
// quantiles come out of a histogram sketch rather than a sort, which
// keeps this cheap for big images. The end points are pinned to the
// true min and max so the black/white points stay anchored.
func quantilePairs(x, y []float64, n int) ([]float64, []float64) {
	if len(x) == 0 || len(y) == 0 {
		return nil, nil
	}
	if n < 2 { n = 2 }

	hx := hdrhistogram.New(0, histMax, 4)
	hy := hdrhistogram.New(0, histMax, 4)
	for _, v := range x {
		hx.RecordValue(int64(v*histMax + 0.5))
	}
	for _, v := range y {
		hy.RecordValue(int64(v*histMax + 0.5))
	}

	qx := make([]float64, n)
	qy := make([]float64, n)
	for i := 1; i < n-1; i++ {
		q := 100.0 * float64(i) / float64(n-1)
		qx[i] = float64(hx.ValueAtQuantile(q)) / histMax
		qy[i] = float64(hy.ValueAtQuantile(q)) / histMax
	}
	qx[0], qx[n-1] = float64(hx.Min())/histMax, float64(hx.Max())/histMax
	qy[0], qy[n-1] = float64(hy.Min())/histMax, float64(hy.Max())/histMax

	return qx, qy
}

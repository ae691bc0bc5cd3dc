package levels

import(
	"fmt"
	"math"

	"github.com/calvinkuo/levelmatch/pkg/lmath"
)

// minSpan is the smallest separation we allow between the black and
// white points (input or output). Keeps the transfer function away from
// a divide-by-zero.
const minSpan = 1.0 / 1024

// An Adjustment holds the levels parameters for one channel, in the
// normalized [0,1] domain: the input black/white points, the output
// black/white points, and gamma. Black intensities at or below Black
// map to OutBlack, intensities at or above White map to OutWhite, and
// the midtones follow a power curve between them - Gamma above 1
// brightens the midtones, below 1 darkens them, exactly like the
// slider in an image editor.
//
// OutBlack/OutWhite default to 0 and 1, which collapses this to the
// plain three-parameter (black, white, gamma) adjustment.
type Adjustment struct {
	Black    float64
	White    float64
	OutBlack float64
	OutWhite float64
	Gamma    float64
}

// Identity is the do-nothing adjustment.
func Identity() Adjustment {
	return Adjustment{Black: 0.0, White: 1.0, OutBlack: 0.0, OutWhite: 1.0, Gamma: 1.0}
}

// String renders the points in the 0-255 domain that editors display,
// gamma as-is. The output points only show up when they do something.
func (a Adjustment)String() string {
	str := fmt.Sprintf("levels[%5.1f-%5.1f", a.Black*255.0, a.White*255.0)
	if a.OutBlack != 0.0 || a.OutWhite != 1.0 {
		str += fmt.Sprintf(" => %5.1f-%5.1f", a.OutBlack*255.0, a.OutWhite*255.0)
	}
	return str + fmt.Sprintf(", g=%.3f]", a.Gamma)
}

// Apply maps one input intensity through the adjustment:
//
//	t = clamp((x-Black) / (White-Black), 0, 1)
//	y = OutBlack + (OutWhite-OutBlack) * t^(1/Gamma)
//
// Monotone non-decreasing in x for any valid parameter set.
func (a Adjustment)Apply(x float64) float64 {
	t := (x - a.Black) / (a.White - a.Black)
	if t < 0.0 { t = 0.0 }
	if t > 1.0 { t = 1.0 }
	y := a.OutBlack + (a.OutWhite - a.OutBlack) * math.Pow(t, 1.0/a.Gamma)
	return lmath.Clamp01(y)
}

// Invert maps an output intensity back to the input that produced it.
// The recovery is only exact when y lies strictly between the output
// black and white points: a saturated y has a whole interval of
// preimages, so the nearest saturation threshold comes back with
// exact=false.
func (a Adjustment)Invert(y float64) (x float64, exact bool) {
	if y <= a.OutBlack { return a.Black, false }
	if y >= a.OutWhite { return a.White, false }
	t := math.Pow((y - a.OutBlack) / (a.OutWhite - a.OutBlack), a.Gamma)
	return a.Black + (a.White - a.Black) * t, true
}

// Validate returns an InvalidParameterError unless the parameters are
// finite, in range, with black strictly below white and gamma strictly
// positive.
func (a Adjustment)Validate() error {
	reason := ""
	switch {
	case !isFinite(a.Black) || !isFinite(a.White) || !isFinite(a.OutBlack) || !isFinite(a.OutWhite) || !isFinite(a.Gamma):
		reason = "non-finite value"
	case a.Black < 0.0 || a.White > 1.0:
		reason = "input points must lie in [0,1]"
	case a.Black >= a.White:
		reason = "black point must sit strictly below white point"
	case a.OutBlack < 0.0 || a.OutWhite > 1.0:
		reason = "output points must lie in [0,1]"
	case a.OutBlack >= a.OutWhite:
		reason = "output black point must sit strictly below output white point"
	case a.Gamma <= 0.0:
		reason = "gamma must be strictly positive"
	}

	if reason != "" {
		return &InvalidParameterError{Adjustment: a, Reason: reason}
	}
	return nil
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

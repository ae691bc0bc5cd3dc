package levels

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestApplyKnownValues(t *testing.T) {
	tests := []struct {
		name    string
		adj     Adjustment
		x, want float64
	}{
		{"identity mid", Identity(), 0.5, 0.5},
		{"identity black", Identity(), 0.0, 0.0},
		{"identity white", Identity(), 1.0, 1.0},
		{"window midpoint", Adjustment{Black: 0.2, White: 0.8, OutWhite: 1, Gamma: 1}, 0.5, 0.5},
		{"window quarter", Adjustment{Black: 0.2, White: 0.8, OutWhite: 1, Gamma: 1}, 0.35, 0.25},
		{"gamma 2 brightens", Adjustment{White: 1, OutWhite: 1, Gamma: 2}, 0.25, 0.5},
		{"gamma half darkens", Adjustment{White: 1, OutWhite: 1, Gamma: 0.5}, 0.5, 0.25},
		{"output window", Adjustment{White: 1, OutBlack: 0.25, OutWhite: 0.75, Gamma: 1}, 0.5, 0.5},
		{"output window black", Adjustment{White: 1, OutBlack: 0.25, OutWhite: 0.75, Gamma: 1}, 0.0, 0.25},
	}
	for _, tc := range tests {
		if got := tc.adj.Apply(tc.x); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%s: Apply(%v): got %v, want %v", tc.name, tc.x, got, tc.want)
		}
	}
}

func TestApplySaturation(t *testing.T) {
	adj := Adjustment{Black: 0.3, White: 0.7, OutWhite: 1, Gamma: 1.8}

	for _, x := range []float64{0.0, 0.1, 0.3} {
		if got := adj.Apply(x); got != 0.0 {
			t.Errorf("Apply(%v) at/below black point: got %v, want 0", x, got)
		}
	}
	for _, x := range []float64{0.7, 0.9, 1.0} {
		if got := adj.Apply(x); got != 1.0 {
			t.Errorf("Apply(%v) at/above white point: got %v, want 1", x, got)
		}
	}
}

func TestApplyMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		b := rng.Float64() * 0.8
		w := b + minSpan + rng.Float64()*(1.0-b-minSpan)
		g := math.Exp(rng.Float64()*4.0 - 2.0) // gamma in [e^-2, e^2]
		adj := Adjustment{Black: b, White: w, OutWhite: 1, Gamma: g}
		if err := adj.Validate(); err != nil {
			t.Fatalf("generated invalid params %s: %v", adj, err)
		}

		prev := -1.0
		for j := 0; j <= 1000; j++ {
			y := adj.Apply(float64(j) / 1000.0)
			if y < prev {
				t.Fatalf("%s not monotone at x=%d/1000: %v < %v", adj, j, y, prev)
			}
			prev = y
		}
	}
}

func TestValidate(t *testing.T) {
	valid := []Adjustment{
		Identity(),
		{Black: 0.1, White: 0.9, OutBlack: 0.05, OutWhite: 0.95, Gamma: 2.2},
		{Black: 0.0, White: minSpan, OutWhite: 1, Gamma: 0.01},
	}
	for _, adj := range valid {
		if err := adj.Validate(); err != nil {
			t.Errorf("Validate(%s): got %v, want nil", adj, err)
		}
	}

	invalid := []Adjustment{
		{Black: 0.5, White: 0.5, OutWhite: 1, Gamma: 1},   // b == w
		{Black: 0.9, White: 0.1, OutWhite: 1, Gamma: 1},   // b > w
		{Black: -0.1, White: 1, OutWhite: 1, Gamma: 1},    // b < 0
		{Black: 0, White: 1.1, OutWhite: 1, Gamma: 1},     // w > 1
		{Black: 0, White: 1, OutWhite: 1, Gamma: 0},       // g == 0
		{Black: 0, White: 1, OutWhite: 1, Gamma: -2},      // g < 0
		{Black: 0, White: 1, OutBlack: 0.8, OutWhite: 0.2, Gamma: 1}, // out pair inverted
		{Black: math.NaN(), White: 1, OutWhite: 1, Gamma: 1},
		{Black: 0, White: 1, OutWhite: 1, Gamma: math.Inf(1)},
	}
	for _, adj := range invalid {
		err := adj.Validate()
		if err == nil {
			t.Errorf("Validate(%+v): got nil, want error", adj)
			continue
		}
		var ipe *InvalidParameterError
		if !errors.As(err, &ipe) {
			t.Errorf("Validate(%+v): got %T, want *InvalidParameterError", adj, err)
		}
	}
}

func TestInvertRoundTrip(t *testing.T) {
	adj := Adjustment{Black: 0.2, White: 0.9, OutWhite: 1, Gamma: 2.2}

	for _, x := range []float64{0.25, 0.4, 0.55, 0.7, 0.85} {
		y := adj.Apply(x)
		got, exact := adj.Invert(y)
		if !exact {
			t.Errorf("Invert(Apply(%v)): got exact=false, want true", x)
		}
		if math.Abs(got-x) > 1e-9 {
			t.Errorf("Invert(Apply(%v)): got %v, want %v", x, got, x)
		}
	}
}

func TestInvertSaturated(t *testing.T) {
	adj := Adjustment{Black: 0.2, White: 0.9, OutWhite: 1, Gamma: 2.2}

	// Below the black point the output saturates at 0; the preimage of 0
	// is a whole interval, so the inverse is tagged inexact.
	if got, exact := adj.Invert(0.0); exact || got != adj.Black {
		t.Errorf("Invert(0): got (%v, %v), want (%v, false)", got, exact, adj.Black)
	}
	if got, exact := adj.Invert(1.0); exact || got != adj.White {
		t.Errorf("Invert(1): got (%v, %v), want (%v, false)", got, exact, adj.White)
	}

	// With output levels in play the saturation thresholds move
	out := Adjustment{Black: 0.1, White: 0.8, OutBlack: 0.25, OutWhite: 0.75, Gamma: 1}
	if got, exact := out.Invert(0.2); exact || got != out.Black {
		t.Errorf("Invert(0.2): got (%v, %v), want (%v, false)", got, exact, out.Black)
	}
	if got, exact := out.Invert(0.8); exact || got != out.White {
		t.Errorf("Invert(0.8): got (%v, %v), want (%v, false)", got, exact, out.White)
	}
}

func TestAdjustmentString(t *testing.T) {
	if got, want := Identity().String(), "levels[  0.0-255.0, g=1.000]"; got != want {
		t.Errorf("Identity String: got %q, want %q", got, want)
	}

	adj := Adjustment{Black: 0.2, White: 0.8, OutBlack: 0.1, OutWhite: 0.9, Gamma: 1.5}
	if got, want := adj.String(), "levels[ 51.0-204.0 =>  25.5-229.5, g=1.500]"; got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
}

package levels

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGrayPNG(t *testing.T, filename string, w, h int, code uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: code})
		}
	}
	writePNG(t, filename, img)
}

func writePNG(t *testing.T, filename string, img image.Image) {
	t.Helper()
	f, err := os.Create(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// A uniform gray 100 image leveled onto a uniform gray 200 image must
// come out uniform gray 200, give or take one 8-bit step.
func TestMatchUniformEndToEnd(t *testing.T) {
	dir := t.TempDir()
	toLevel := filepath.Join(dir, "tolevel.png")
	toMatch := filepath.Join(dir, "tomatch.png")
	output := filepath.Join(dir, "output.png")

	writeGrayPNG(t, toLevel, 10, 10, 100)
	writeGrayPNG(t, toMatch, 10, 10, 200)

	m := NewMatch()
	m.Verbosity = 0
	if err := m.LoadFiles(toLevel, toMatch, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Fit(); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteOutput(output); err != nil {
		t.Fatal(err)
	}

	out, err := LoadPlanes(output, NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != ModeGray || out.Dx() != 10 || out.Dy() != 10 {
		t.Fatalf("output: got %s %s", out.Mode, out.Shape())
	}
	for i, v := range out.Chans[0].Values() {
		if math.Abs(v*255.0-200.0) > 1.0 {
			t.Fatalf("pixel %d: got %v in 8-bit terms, want 200 +/- 1", i, v*255.0)
		}
	}
}

// Matching an image onto itself is a no-op, give or take one step.
func TestMatchSelfIsIdentity(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.png")
	output := filepath.Join(dir, "output.png")

	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x*16 + y)})
		}
	}
	writePNG(t, input, img)

	m := NewMatch()
	m.Verbosity = 0
	if err := m.LoadFiles(input, input, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Fit(); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteOutput(output); err != nil {
		t.Fatal(err)
	}

	out, err := LoadPlanes(output, NewConfig())
	if err != nil {
		t.Fatal(err)
	}
	in := SplitImage(img, ModeGray, 8)
	for i := range in.Chans[0].Values() {
		inV := in.Chans[0].Values()[i]
		outV := out.Chans[0].Values()[i]
		if math.Abs(outV-inV)*255.0 > 1.0 {
			t.Fatalf("pixel %d drifted: in %v, out %v", i, inV, outV)
		}
	}
}

func TestLoadFilesModeHarmonization(t *testing.T) {
	dir := t.TempDir()
	grayFile := filepath.Join(dir, "gray.png")
	colorFile := filepath.Join(dir, "color.png")

	writeGrayPNG(t, grayFile, 4, 4, 80)

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 50), uint8(y * 50), 200, 255})
		}
	}
	writePNG(t, colorFile, img)

	m := NewMatch()
	m.Verbosity = 0
	if err := m.LoadFiles(grayFile, colorFile, ""); err != nil {
		t.Fatal(err)
	}

	// Gray and color harmonize up to rgb, and the render input follows
	for _, p := range []Planes{m.ToLevel, m.ToMatch, m.Input} {
		if p.Mode != ModeRGB {
			t.Errorf("mode: got %s, want %s", p.Mode, ModeRGB)
		}
	}

	// A forced mode beats the auto-detected one
	forced := NewMatch()
	forced.Verbosity = 0
	forced.Mode = "graya"
	if err := forced.LoadFiles(grayFile, colorFile, ""); err != nil {
		t.Fatal(err)
	}
	if forced.ToLevel.Mode != ModeGrayAlpha {
		t.Errorf("forced mode: got %s, want %s", forced.ToLevel.Mode, ModeGrayAlpha)
	}
}

func TestWriteOutputReports(t *testing.T) {
	dir := t.TempDir()
	toLevel := filepath.Join(dir, "tolevel.png")
	toMatch := filepath.Join(dir, "tomatch.png")

	writeGrayPNG(t, toLevel, 8, 8, 60)
	writeGrayPNG(t, toMatch, 8, 8, 180)

	m := NewMatch()
	m.Verbosity = 0
	m.CurvesReport = filepath.Join(dir, "curves.png")
	m.ResidualDir = filepath.Join(dir, "residuals")

	if err := m.LoadFiles(toLevel, toMatch, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Fit(); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteOutput(filepath.Join(dir, "output.png")); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(m.CurvesReport); err != nil {
		t.Errorf("curves report missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.ResidualDir, "residual-L.png")); err != nil {
		t.Errorf("residual map missing: %v", err)
	}
}

func TestMatchRenderBeforeFit(t *testing.T) {
	m := NewMatch()
	m.Input = NewPlanes(ModeGray, 8, 2, 2)
	if _, err := m.Render(); err == nil {
		t.Errorf("render with no fitted adjustments should fail")
	}
}

func TestMatchString(t *testing.T) {
	m := NewMatch()
	m.ToLevel = NewPlanes(ModeRGB, 8, 4, 4)
	m.Adjustments = []Adjustment{Identity(), Identity(), Identity()}

	s := m.String()
	for _, want := range []string{"Match rgb 4x4x3", "R:", "G:", "B:"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}

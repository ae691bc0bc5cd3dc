package levels

import(
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"
	"golang.org/x/image/draw"

	"github.com/calvinkuo/levelmatch/pkg/lmath"
)

// Planes is a decoded image split into per-channel float planes, all
// values normalized to [0,1]. Depth remembers the bits-per-channel the
// source was encoded with (8 or 16) so the output can quantize back to
// the same range.
//
// Planes implements image.Image, which lets the x/image resampling
// kernels consume it directly.
type Planes struct {
	Mode  Mode
	Depth int
	Chans []lmath.Grid
}

func NewPlanes(m Mode, depth, w, h int) Planes {
	chans := make([]lmath.Grid, m.Channels())
	for i := range chans {
		chans[i] = lmath.NewGrid(w, h)
	}
	return Planes{Mode: m, Depth: depth, Chans: chans}
}

func (p Planes)Shape() Shape { return Shape{W: p.Dx(), H: p.Dy(), C: len(p.Chans)} }

func (p Planes)Dx() int {
	if len(p.Chans) == 0 { return 0 }
	return p.Chans[0].Dx()
}

func (p Planes)Dy() int {
	if len(p.Chans) == 0 { return 0 }
	return p.Chans[0].Dy()
}

// Implement image.Image
func (p Planes)ColorModel() color.Model { return color.NRGBA64Model }
func (p Planes)Bounds() image.Rectangle { return image.Rectangle{Max:image.Point{p.Dx(), p.Dy()}} }
func (p Planes)At(x, y int) color.Color {
	r, g, b, a := p.rgba(x, y)
	return color.NRGBA64{R: q16(r), G: q16(g), B: q16(b), A: q16(a)}
}

// rgba reads one pixel as straight (non-premultiplied) RGBA floats,
// replicating gray and filling in opaque alpha as needed.
func (p Planes)rgba(x, y int) (float64, float64, float64, float64) {
	switch p.Mode {
	case ModeGray:
		v := p.Chans[0].Get(x, y)
		return v, v, v, 1.0
	case ModeGrayAlpha:
		v := p.Chans[0].Get(x, y)
		return v, v, v, p.Chans[1].Get(x, y)
	case ModeRGB:
		return p.Chans[0].Get(x, y), p.Chans[1].Get(x, y), p.Chans[2].Get(x, y), 1.0
	default: // ModeRGBA
		return p.Chans[0].Get(x, y), p.Chans[1].Get(x, y), p.Chans[2].Get(x, y), p.Chans[3].Get(x, y)
	}
}

func (p *Planes)setPixel(x, y int, r, g, b, a float64) {
	switch p.Mode {
	case ModeGray:
		p.Chans[0].Set(x, y, luma(r, g, b))
	case ModeGrayAlpha:
		p.Chans[0].Set(x, y, luma(r, g, b))
		p.Chans[1].Set(x, y, a)
	case ModeRGB:
		p.Chans[0].Set(x, y, r)
		p.Chans[1].Set(x, y, g)
		p.Chans[2].Set(x, y, b)
	default: // ModeRGBA
		p.Chans[0].Set(x, y, r)
		p.Chans[1].Set(x, y, g)
		p.Chans[2].Set(x, y, b)
		p.Chans[3].Set(x, y, a)
	}
}

// The ITU-R 601 luma weights, as integer per-mille so that r==g==b==1.0
// lands on exactly 1.0.
func luma(r, g, b float64) float64 {
	return (299.0*r + 587.0*g + 114.0*b) / 1000.0
}

// SplitImage splits a decoded image into float planes for mode m.
// Color pixels headed for a gray mode go through the luma weights;
// gray pixels headed for a color mode replicate. Alpha is read
// straight (non-premultiplied).
func SplitImage(img image.Image, m Mode, depth int) Planes {
	b := img.Bounds()
	p := NewPlanes(m, depth, b.Dx(), b.Dy())

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			p.setPixel(x-b.Min.X, y-b.Min.Y,
				float64(c.R)/65535.0, float64(c.G)/65535.0, float64(c.B)/65535.0, float64(c.A)/65535.0)
		}
	}
	return p
}

// Convert returns p in mode m. Converting to p's own mode returns p
// unchanged, sharing the underlying grids.
func (p Planes)Convert(m Mode) Planes {
	if m == p.Mode {
		return p
	}

	out := NewPlanes(m, p.Depth, p.Dx(), p.Dy())
	for y := 0; y < p.Dy(); y++ {
		for x := 0; x < p.Dx(); x++ {
			r, g, b, a := p.rgba(x, y)
			out.setPixel(x, y, r, g, b, a)
		}
	}
	return out
}

// Resample returns p rescaled to w x h through the given kernel.
func (p Planes)Resample(w, h int, scaler draw.Scaler) Planes {
	dst := image.NewNRGBA64(image.Rect(0, 0, w, h))
	scaler.Scale(dst, dst.Bounds(), p, p.Bounds(), draw.Src, nil)
	return SplitImage(dst, p.Mode, p.Depth)
}

// ToImage quantizes the planes back into a Go image at the native
// depth. Modes without alpha come back fully opaque, which the PNG
// encoder notices and writes as plain truecolor.
func (p Planes)ToImage() image.Image {
	w, h := p.Dx(), p.Dy()

	switch {
	case p.Mode == ModeGray && p.Depth <= 8:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y:=0; y<h; y++ {
			for x:=0; x<w; x++ {
				img.SetGray(x, y, color.Gray{Y: q8(p.Chans[0].Get(x, y))})
			}
		}
		return img

	case p.Mode == ModeGray:
		img := image.NewGray16(image.Rect(0, 0, w, h))
		for y:=0; y<h; y++ {
			for x:=0; x<w; x++ {
				img.SetGray16(x, y, color.Gray16{Y: q16(p.Chans[0].Get(x, y))})
			}
		}
		return img

	case p.Depth <= 8:
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		for y:=0; y<h; y++ {
			for x:=0; x<w; x++ {
				r, g, b, a := p.rgba(x, y)
				img.SetNRGBA(x, y, color.NRGBA{R: q8(r), G: q8(g), B: q8(b), A: q8(a)})
			}
		}
		return img

	default:
		img := image.NewNRGBA64(image.Rect(0, 0, w, h))
		for y:=0; y<h; y++ {
			for x:=0; x<w; x++ {
				r, g, b, a := p.rgba(x, y)
				img.SetNRGBA64(x, y, color.NRGBA64{R: q16(r), G: q16(g), B: q16(b), A: q16(a)})
			}
		}
		return img
	}
}

// narrow drops channels the pixel data doesn't need: equal RGB planes
// narrow to gray, an all-opaque alpha plane drops off. The HDR loader
// uses this; LDR formats get the same treatment via EmpiricalMode
// before splitting.
func (p Planes)narrow() Planes {
	hasColor, hasAlpha := false, false

	if p.Mode.HasColor() {
		r, g, b := p.Chans[0].Values(), p.Chans[1].Values(), p.Chans[2].Values()
		for i := range r {
			if r[i] != g[i] || g[i] != b[i] {
				hasColor = true
				break
			}
		}
	}
	if p.Mode.HasAlpha() {
		for _, a := range p.Chans[len(p.Chans)-1].Values() {
			if a != 1.0 {
				hasAlpha = true
				break
			}
		}
	}
	return p.Convert(modeFor(hasColor, hasAlpha))
}

func q8(v float64) uint8   { return uint8(lmath.Clamp01(v)*255.0 + 0.5) }
func q16(v float64) uint16 { return uint16(lmath.Clamp01(v)*65535.0 + 0.5) }

// hdrPlanes wraps Planes as an hdr.Image so the Radiance codec can
// consume it. The format carries no alpha, so that plane is dropped.
type hdrPlanes struct{ Planes }

func (h hdrPlanes)ColorModel() color.Model { return hdrcolor.RGBModel }
func (h hdrPlanes)At(x, y int) color.Color { return h.HDRAt(x, y) }
func (h hdrPlanes)Size() int               { return h.Dx() * h.Dy() }

func (h hdrPlanes)HDRAt(x, y int) hdrcolor.Color {
	r, g, b, _ := h.rgba(x, y)
	return hdrcolor.RGB{R: r, G: g, B: b}
}

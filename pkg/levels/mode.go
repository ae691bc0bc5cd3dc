package levels

import(
	"fmt"
	"image"
	"image/color"
)

// A Mode is the set of channels an image carries. Everything in the
// pipeline - sample extraction, fitting, rendering - works per channel,
// so the source, reference and render input all get converted to one
// common Mode up front. Alpha is just another channel here: it gets
// fitted and leveled like the rest, which is what you want when the
// edit being recovered touched transparency.
type Mode string

const(
	ModeGray      Mode = "gray"
	ModeGrayAlpha Mode = "graya"
	ModeRGB       Mode = "rgb"
	ModeRGBA      Mode = "rgba"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGray, ModeGrayAlpha, ModeRGB, ModeRGBA:
		return Mode(s), nil
	}
	return "", fmt.Errorf("no image mode named '%s'", s)
}

func (m Mode)Channels() int {
	switch m {
	case ModeGray:      return 1
	case ModeGrayAlpha: return 2
	case ModeRGB:       return 3
	case ModeRGBA:      return 4
	}
	return 0
}

func (m Mode)HasColor() bool { return m == ModeRGB || m == ModeRGBA }
func (m Mode)HasAlpha() bool { return m == ModeGrayAlpha || m == ModeRGBA }

// ChannelNames are the per-channel labels used in logs and reports.
func (m Mode)ChannelNames() []string {
	switch m {
	case ModeGray:      return []string{"L"}
	case ModeGrayAlpha: return []string{"L", "A"}
	case ModeRGB:       return []string{"R", "G", "B"}
	case ModeRGBA:      return []string{"R", "G", "B", "A"}
	}
	return nil
}

func modeFor(hasColor, hasAlpha bool) Mode {
	switch {
	case hasColor && hasAlpha: return ModeRGBA
	case hasColor:             return ModeRGB
	case hasAlpha:             return ModeGrayAlpha
	}
	return ModeGray
}

// SupersetMode is the narrowest mode that can hold both m1 and m2
// without losing color or transparency.
func SupersetMode(m1, m2 Mode) Mode {
	return modeFor(m1.HasColor() || m2.HasColor(), m1.HasAlpha() || m2.HasAlpha())
}

// DetermineCommonMode finds the narrowest mode that can hold every
// image in the set.
func DetermineCommonMode(ps ...Planes) Mode {
	common := ModeGray
	for _, p := range ps {
		common = SupersetMode(common, p.Mode)
	}
	return common
}

// EmpiricalMode inspects the actual pixels to find the narrowest mode
// that holds an image without loss. An image only counts as color when
// some pixel has R != G or G != B, and only counts as carrying alpha
// when some pixel isn't fully opaque - a color-typed file full of gray
// pixels is still gray, which keeps a gray+color image pair down to one
// channel instead of three.
func EmpiricalMode(img image.Image) Mode {
	if p, ok := img.(*image.Paletted); ok {
		return paletteMode(p)
	}

	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return ModeGray
	}

	hasColor, hasAlpha := false, false
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			if c.R != c.G || c.G != c.B { hasColor = true }
			if c.A != 0xFFFF            { hasAlpha = true }
			if hasColor && hasAlpha {
				return ModeRGBA
			}
		}
	}
	return modeFor(hasColor, hasAlpha)
}

// For paletted images it's enough to scan the palette - but only the
// entries some pixel actually uses, so a gray image doesn't get
// promoted to color by a leftover palette slot.
func paletteMode(img *image.Paletted) Mode {
	used := map[uint8]bool{}
	for _, idx := range img.Pix {
		used[idx] = true
	}

	hasColor, hasAlpha := false, false
	for i, entry := range img.Palette {
		if i > 255 || !used[uint8(i)] {
			continue
		}
		c := color.NRGBA64Model.Convert(entry).(color.NRGBA64)
		if c.R != c.G || c.G != c.B { hasColor = true }
		if c.A != 0xFFFF            { hasAlpha = true }
	}
	return modeFor(hasColor, hasAlpha)
}

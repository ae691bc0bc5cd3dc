package lmath

import(
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A Grid is a single channel of image data: float64 values in row-major
// order. Decoded image planes and residual maps both live in Grids.
type Grid struct {
	stride int
	values []float64
}

func NewGrid(w, h int) Grid {
	return Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g1 *Grid)NewFromThis() Grid       { return NewGrid(g1.Dx(), g1.Dy()) }
func (g *Grid)Set(x, y int, v float64)  { g.values[g.stride*y + x] = v }
func (g *Grid)Get(x, y int) float64     { return g.values[g.stride*y + x] }
func (g *Grid)Dx() int                  { return g.stride }
func (g *Grid)Values() []float64        { return g.values } // the backing slice, for bulk math

func (g *Grid)Dy() int {
	if g.stride == 0 { return 0 }
	return len(g.values) / g.stride
}

func (g1 *Grid)Copy() *Grid {
	g2 := Grid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

func (g *Grid)MinMax() (float64, float64) {
	if len(g.values) == 0 { return 0.0, 0.0 }
	return floats.Min(g.values), floats.Max(g.values)
}

func (g *Grid)Stats() string {
	if len(g.values) == 0 {
		return fmt.Sprintf("grid[%dx%d, empty]", g.Dx(), g.Dy())
	}

	vals := append([]float64{}, g.values...)
	sort.Float64s(vals)
	p50 := stat.Quantile(0.50, stat.Empirical, vals, nil)

	return fmt.Sprintf("grid[%dx%d, vals{%f,%f}, p50 %f]", g.Dx(), g.Dy(), vals[0], vals[len(vals)-1], p50)
}

// ToImg saves the grid as a simple grayscale, normalized to the range of
// values in the grid, and gamma scaling the gray to look normal for
// human vision.
func (g *Grid)ToImg(title, filename string) error {
	min, max := g.MinMax()
	if max <= min { max = min + 1.0 } // a flat grid renders as black

	img := image.NewRGBA64(image.Rectangle{Max:image.Point{g.Dx(), g.Dy()}})
	for x:=0; x<g.Dx(); x++ {
		for y:=0; y<g.Dy(); y++ {
			lum := g.Get(x,y)
			gray := GammaExpand((lum - min) / (max - min))
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,1,1)
	dc.DrawString(title, 50, 50)
	return dc.SavePNG(filename)
}

package levels

import (
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"github.com/skypies/util/histogram"
)

// WriteCurvesReport plots the fitted transfer curve for each channel
// into a PNG, one colored line per channel over a dashed identity
// diagonal. Handy for eyeballing whether a fit went somewhere silly.
func WriteCurvesReport(filename string, adjs []Adjustment, m Mode) error {
	size, margin := 512.0, 32.0
	plot := size - 2.0*margin

	toX := func(v float64) float64 { return margin + v*plot }
	toY := func(v float64) float64 { return size - margin - v*plot }

	dc := gg.NewContext(int(size), int(size))
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Frame, and the identity diagonal for reference
	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1.0)
	dc.DrawRectangle(margin, margin, plot, plot)
	dc.Stroke()
	dc.SetDash(4.0, 4.0)
	dc.MoveTo(toX(0.0), toY(0.0))
	dc.LineTo(toX(1.0), toY(1.0))
	dc.Stroke()
	dc.SetDash()

	names := m.ChannelNames()
	for c, adj := range adjs {
		name := fmt.Sprintf("ch%d", c)
		if c < len(names) { name = names[c] }

		r, g, b := channelColor(name)
		dc.SetRGB(r, g, b)
		dc.SetLineWidth(2.0)
		for i := 0; i <= 255; i++ {
			x := float64(i) / 255.0
			if i == 0 {
				dc.MoveTo(toX(x), toY(adj.Apply(x)))
			} else {
				dc.LineTo(toX(x), toY(adj.Apply(x)))
			}
		}
		dc.Stroke()

		dc.DrawString(fmt.Sprintf("%s %s", name, adj), margin+8.0, margin+16.0+16.0*float64(c))
	}

	return dc.SavePNG(filename)
}

func channelColor(name string) (float64, float64, float64) {
	switch name {
	case "R":
		return 0.8, 0.2, 0.2
	case "G":
		return 0.1, 0.6, 0.1
	case "B":
		return 0.2, 0.2, 0.9
	case "A":
		return 0.6, 0.5, 0.1
	}
	return 0.3, 0.3, 0.3
}

// ResidualHistogram buckets the per-sample fit residuals, scaled to
// 8-bit levels so the numbers read naturally against image data.
func ResidualHistogram(set SampleSet, adj Adjustment) histogram.Histogram {
	hist := histogram.Histogram{NumBuckets: 32, ValMin: 0, ValMax: 256}

	for i := range set.X {
		resid := math.Abs(adj.Apply(set.X[i]) - set.Y[i])
		hist.Add(histogram.ScalarVal(int(resid*255.0 + 0.5)))
	}

	return hist
}

package levels

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/calvinkuo/levelmatch/pkg/lmath"
)

// Match holds a levels-matching job: the image whose levels are off,
// the reference it should look like, and the image to render once the
// per-channel adjustments have been fitted (usually the first one
// again, but it can be a different shot from the same batch).
type Match struct {
	Config

	ToLevel Planes // fit input: the image with the wrong levels
	ToMatch Planes // fit target: the reference to aim for
	Input   Planes // render input

	Sets        []SampleSet
	Adjustments []Adjustment
	Infos       []FitInfo
}

func NewMatch() Match {
	return Match{
		Config: NewConfig(),
	}
}

func (m Match)String() string {
	str := fmt.Sprintf("Match %s %s [\n", m.ToLevel.Mode, m.ToLevel.Shape())
	names := m.ToLevel.Mode.ChannelNames()
	for c, adj := range m.Adjustments {
		str += fmt.Sprintf("  %s: %s\n", names[c], adj)
	}
	return str + "]\n"
}

// LoadFiles loads the fit pair and the render input, then converts all
// three to a single working mode: the narrowest that loses nothing
// from any of them, unless the config forces one.
func (m *Match)LoadFiles(toLevel, toMatch, input string) error {
	var err error

	if m.ToLevel, err = LoadPlanes(toLevel, m.Config); err != nil {
		return err
	}
	if m.ToMatch, err = LoadPlanes(toMatch, m.Config); err != nil {
		return err
	}

	if input == "" || input == toLevel {
		m.Input = m.ToLevel
	} else if m.Input, err = LoadPlanes(input, m.Config); err != nil {
		return err
	}

	mode := DetermineCommonMode(m.ToLevel, m.ToMatch, m.Input)
	if forced, ok := m.Config.GetMode(); ok {
		mode = forced
	}

	m.ToLevel = m.ToLevel.Convert(mode)
	m.ToMatch = m.ToMatch.Convert(mode)
	m.Input = m.Input.Convert(mode)

	if m.Verbosity > 0 {
		log.Printf("working mode %s (%d channels), fitting %s onto %s",
			mode, mode.Channels(), m.ToLevel.Shape(), m.ToMatch.Shape())
	}

	return nil
}

// Fit extracts matched sample pairs and fits a levels adjustment per
// channel. The fitted parameters end up in m.Adjustments, in channel
// order.
func (m *Match)Fit() error {
	var err error

	if m.Sets, err = ExtractSamples(m.ToLevel, m.ToMatch, m.Config); err != nil {
		return err
	}
	if m.Adjustments, m.Infos, err = Fit(m.Sets, m.Config); err != nil {
		return err
	}

	names := m.ToLevel.Mode.ChannelNames()
	for c, adj := range m.Adjustments {
		if m.Verbosity > 0 {
			log.Printf("%s: %s", names[c], adj)
		}
		if m.Verbosity > 1 {
			log.Printf("%s: %s", names[c], m.Infos[c])
			log.Printf("%s residuals x255: %v", names[c], ResidualHistogram(m.Sets[c], adj))
		}
	}

	return nil
}

// Render applies the fitted adjustments to the render input.
func (m *Match)Render() (Planes, error) {
	if len(m.Adjustments) == 0 {
		return Planes{}, fmt.Errorf("rendering: nothing fitted yet")
	}
	return Render(m.Input, m.Adjustments)
}

// WriteOutput renders and encodes the leveled image, plus whatever
// report artifacts the config asks for.
func (m *Match)WriteOutput(filename string) error {
	out, err := m.Render()
	if err != nil {
		return err
	}
	if err := WritePlanes(filename, out, m.Config); err != nil {
		return err
	}

	if m.CurvesReport != "" {
		if err := WriteCurvesReport(m.CurvesReport, m.Adjustments, out.Mode); err != nil {
			return err
		}
	}
	if m.ResidualDir != "" {
		if err := m.WriteResiduals(m.ResidualDir); err != nil {
			return err
		}
	}

	return nil
}

// WriteResiduals renders the fit input through the fitted adjustments
// and dumps one grayscale image per channel of how far each pixel
// still is from the reference. Big bright patches mean the edit being
// recovered wasn't a pure levels adjustment there.
func (m *Match)WriteResiduals(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("residuals dir '%s': %v", dir, err)
	}

	leveled, err := Render(m.ToLevel, m.Adjustments)
	if err != nil {
		return err
	}
	ref := m.ToMatch
	if ref.Dx() != leveled.Dx() || ref.Dy() != leveled.Dy() {
		ref = ref.Resample(leveled.Dx(), leveled.Dy(), m.Config.GetResampler())
	}

	names := leveled.Mode.ChannelNames()
	for c := range leveled.Chans {
		grid := lmath.NewGrid(leveled.Dx(), leveled.Dy())
		for y := 0; y < leveled.Dy(); y++ {
			for x := 0; x < leveled.Dx(); x++ {
				grid.Set(x, y, math.Abs(leveled.Chans[c].Get(x, y)-ref.Chans[c].Get(x, y)))
			}
		}

		filename := filepath.Join(dir, fmt.Sprintf("residual-%s.png", names[c]))
		if err := grid.ToImg(fmt.Sprintf("%s %s", names[c], grid.Stats()), filename); err != nil {
			return err
		}
		if m.Verbosity > 1 {
			log.Printf("%s residual map: %s", names[c], grid.Stats())
		}
	}

	return nil
}

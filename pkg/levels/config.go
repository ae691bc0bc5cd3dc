package levels

import(
	"log"
	"runtime"

	"golang.org/x/image/draw"
	"gopkg.in/yaml.v2"
)

// Config carries every knob for the pipeline. The zero value is not
// useful - start from NewConfig and override.
type Config struct {
	Verbosity       int

	// Output channel mode override; empty means auto-detect the common
	// mode of the images.
	Mode            string

	// Estimator knobs
	FitHistogram    bool    // fit on paired quantiles only, ignoring pixel positions
	FitOutputLevels bool    // also fit the output black/white points
	Samples         int     // quantile count for histogram pairing and the prefit
	XTol            float64 // convergence tolerance for the fit
	MaxIterations   int     // iteration cap per channel
	Workers         int     // concurrent channel fits; 0 means one per CPU

	// Extractor knobs
	Resampler       string  // nearest, bilinear, catmullrom

	// Reports
	CurvesReport    string  // optional path for the fitted-curves PNG
	ResidualDir     string  // optional dir for per-channel residual grids
}

func NewConfig() Config {
	return Config{
		Verbosity:     1,
		Samples:       2048,
		XTol:          1.0 / 1024,
		MaxIterations: 2000,
		Resampler:     "bilinear",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("can't marshal config yaml: %v", err)
	}
	return string(b)
}

func (c Config)GetResampler() draw.Scaler {
	switch c.Resampler {
	case "nearest":      return draw.NearestNeighbor
	case "bilinear", "": return draw.BiLinear
	case "catmullrom":   return draw.CatmullRom
	default:
		log.Fatalf("no resampling kernel named '%s'", c.Resampler)
		return nil
	}
}

// GetMode returns the output mode override, if one is set.
func (c Config)GetMode() (Mode, bool) {
	if c.Mode == "" {
		return "", false
	}
	m, err := ParseMode(c.Mode)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return m, true
}

// NumWorkers is the pool size for fitting n channels concurrently.
func (c Config)NumWorkers(n int) int {
	w := c.Workers
	if w <= 0 { w = runtime.NumCPU() }
	if w > n  { w = n }
	if w < 1  { w = 1 }
	return w
}

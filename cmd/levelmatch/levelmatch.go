package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/calvinkuo/levelmatch/pkg/levels"
)

var (
	fVerbosity    int
	fMode         string
	fConfig       string
	fHistogram    bool
	fOutputLevels bool
	fSamples      int
	fXTol         float64
	fMaxIter      int
	fWorkers      int
	fResample     string
	fCurves       string
	fResiduals    string
	fDumpConfig   bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 1, "how verbose to get")
	flag.StringVar(&fMode, "mode", "", "force the working channel mode: gray, graya, rgb, rgba")
	flag.StringVar(&fConfig, "config", "", "optional yaml config file")

	flag.BoolVar(&fHistogram, "histogram", false, "fit on paired histogram quantiles, ignoring pixel positions")
	flag.BoolVar(&fOutputLevels, "outputlevels", false, "also fit the output black/white points")
	flag.IntVar(&fSamples, "samples", 2048, "quantile count for histogram pairing and the prefit")
	flag.Float64Var(&fXTol, "xtol", 1.0/1024, "convergence tolerance for the fit")
	flag.IntVar(&fMaxIter, "maxiter", 2000, "iteration cap per channel fit")
	flag.IntVar(&fWorkers, "workers", 0, "concurrent channel fits, 0 means one per CPU")

	flag.StringVar(&fResample, "resample", "bilinear", "kernel for matching mismatched sizes: nearest, bilinear, catmullrom")
	flag.StringVar(&fCurves, "curves", "", "write the fitted transfer curves to this png")
	flag.StringVar(&fResiduals, "residuals", "", "write per-channel residual maps into this dir")
	flag.BoolVar(&fDumpConfig, "dumpconfig", false, "print the effective config as yaml and exit")
	flag.Parse()
}

func main() {
	m := levels.NewMatch()

	if fConfig != "" {
		cfg, err := levels.LoadConfig(fConfig)
		if err != nil {
			log.Fatal(err)
		}
		m.Config = cfg
	}
	applyFlags(&m.Config)

	if fDumpConfig {
		fmt.Print(m.Config.AsYaml())
		return
	}

	args := flag.Args()
	if len(args) > 5 {
		log.Fatalf("usage: levelmatch [flags] [to_level] [to_match] [output] [input_image] [output_mode]")
	}
	toLevel, toMatch, output, input := "tolevel.png", "tomatch.png", "output.png", ""
	if len(args) > 0 { toLevel = args[0] }
	if len(args) > 1 { toMatch = args[1] }
	if len(args) > 2 { output = args[2] }
	if len(args) > 3 { input = args[3] }
	if len(args) > 4 { m.Config.Mode = args[4] }

	if m.Verbosity > 1 {
		log.Printf("Final configuration:-\n\n%s\n", m.Config.AsYaml())
	}

	if err := m.LoadFiles(toLevel, toMatch, input); err != nil {
		log.Fatal(err)
	}
	if err := m.Fit(); err != nil {
		log.Fatal(err)
	}
	if err := m.WriteOutput(output); err != nil {
		log.Fatal(err)
	}

	log.Printf("%s saved\n", output)
}

// applyFlags copies flags the user set explicitly into the config, so
// they win over anything a -config file said.
func applyFlags(cfg *levels.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":            cfg.Verbosity = fVerbosity
		case "mode":         cfg.Mode = fMode
		case "histogram":    cfg.FitHistogram = fHistogram
		case "outputlevels": cfg.FitOutputLevels = fOutputLevels
		case "samples":      cfg.Samples = fSamples
		case "xtol":         cfg.XTol = fXTol
		case "maxiter":      cfg.MaxIterations = fMaxIter
		case "workers":      cfg.Workers = fWorkers
		case "resample":     cfg.Resampler = fResample
		case "curves":       cfg.CurvesReport = fCurves
		case "residuals":    cfg.ResidualDir = fResiduals
		}
	})
}

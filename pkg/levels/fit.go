package levels

import(
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// The search box for the optimizer. Gamma gets a generous but finite
// range; parameters are projected back into the box before every
// evaluation, so the reported minimum always sits inside it.
const(
	gammaMin      = 1.0 / 64
	gammaMax      = 64.0
	penaltyWeight = 10.0
	degenerateVar = 1e-9 // variance below this means "flat channel"
)

// FitInfo carries per-channel diagnostics out of a fit.
type FitInfo struct {
	Channel    int
	Samples    int
	MSE        float64 // mean squared error of the returned parameters
	FuncEvals  int
	Status     string
	Degenerate bool // the flat-channel fallback fired
	Prefit     bool // a coarse quantile prefit seeded the full fit
}

func (fi FitInfo)String() string {
	return fmt.Sprintf("fit[ch %d, %d samples, mse %.3e, %d evals, %s]",
		fi.Channel, fi.Samples, fi.MSE, fi.FuncEvals, fi.Status)
}

// FitChannel finds the Adjustment mapping the channel's source samples
// onto its reference samples with the least mean squared error, via a
// bounded Nelder-Mead search.
//
// The search is seeded at black=min(X), white=max(X), gamma=1. A flat
// source channel makes that seed unusable, so it falls back to the
// identity parameters; and when source and reference are both flat at
// the same value there is nothing to fit at all, and identity comes
// back directly. Big sample sets first get a coarse fit on paired
// quantiles to move the seed close before the full-resolution fit.
//
// Hitting the iteration cap is not an error - the best candidate found
// wins. A ConvergenceError only comes back when there is no finite
// candidate at all (say, every sample was NaN).
func FitChannel(set SampleSet, ch int, cfg Config) (Adjustment, FitInfo, error) {
	info := FitInfo{Channel: ch}

	if len(set.X) != len(set.Y) {
		return Adjustment{}, info, fmt.Errorf("fit channel %d: %d source samples vs %d reference samples",
			ch, len(set.X), len(set.Y))
	}

	x, y := finitePairs(set.X, set.Y)
	info.Samples = len(x)
	if len(x) == 0 {
		return Adjustment{}, info, &ConvergenceError{Channel: ch}
	}

	// Flat mapping to equal flat: the fit is ill-posed, and identity is
	// the documented answer.
	mx, vx := stat.MeanVariance(x, nil)
	my, vy := stat.MeanVariance(y, nil)
	if vx < degenerateVar && vy < degenerateVar && math.Abs(mx-my) < minSpan {
		info.Degenerate = true
		info.Status = "degenerate fallback"
		info.MSE = meanSquaredError(Identity(), x, y)
		return Identity(), info, nil
	}

	seed := Identity()
	if lo, hi := floats.Min(x), floats.Max(x); hi-lo >= minSpan {
		seed.Black, seed.White = lo, hi
	}

	if !cfg.FitHistogram && cfg.Samples >= 2 && len(x) > cfg.Samples {
		qx, qy := quantilePairs(x, y, cfg.Samples)
		if pre, _, err := minimizeLevels(qx, qy, seed, cfg.FitOutputLevels, 1.0/256, cfg.MaxIterations); err == nil {
			seed = pre
			info.Prefit = true
		}
	}

	adj, result, err := minimizeLevels(x, y, seed, cfg.FitOutputLevels, cfg.XTol, cfg.MaxIterations)
	if err != nil {
		return Adjustment{}, info, &ConvergenceError{Channel: ch, Err: err}
	}
	info.FuncEvals = result.FuncEvaluations
	info.Status = result.Status.String()
	info.MSE = meanSquaredError(adj, x, y)

	if err := adj.Validate(); err != nil {
		return Adjustment{}, info, &ConvergenceError{Channel: ch, Err: err}
	}
	return adj, info, nil
}

// minimizeLevels runs the Nelder-Mead search. Candidates outside the
// legal box are evaluated at their projection into the box plus a
// quadratic penalty on the projection distance, which steers the
// simplex back inside without ever feeding Apply() invalid parameters.
func minimizeLevels(x, y []float64, seed Adjustment, fitOut bool, tol float64, maxIter int) (Adjustment, *optimize.Result, error) {
	problem := optimize.Problem{
		Func: func(v []float64) float64 {
			if !finiteVec(v) {
				return 1e12
			}
			adj, penalty := constrain(v, fitOut)
			return meanSquaredError(adj, x, y) + penalty
		},
	}

	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   tol * tol, // tol is residual-scale, the MSE objective is squared-scale
			Iterations: 32,
		},
	}

	result, err := optimize.Minimize(problem, pack(seed, fitOut), settings, &optimize.NelderMead{})
	if result == nil || len(result.Location.X) == 0 || !finiteVec(result.Location.X) {
		if err == nil {
			err = fmt.Errorf("optimizer returned no usable location")
		}
		return Adjustment{}, result, err
	}

	// Limit statuses (iteration cap, evaluation cap) still carry the
	// best candidate found, which is what we want.
	adj, _ := constrain(result.Location.X, fitOut)
	return adj, result, nil
}

// pack flattens an Adjustment into the optimizer's parameter vector:
// (black, white, gamma), plus the output points when those are being
// fitted too.
func pack(a Adjustment, fitOut bool) []float64 {
	if fitOut {
		return []float64{a.Black, a.White, a.Gamma, a.OutBlack, a.OutWhite}
	}
	return []float64{a.Black, a.White, a.Gamma}
}

// constrain projects a parameter vector into the legal box and reports
// how far it had to move, squared.
func constrain(v []float64, fitOut bool) (Adjustment, float64) {
	penalty := 0.0
	clampTo := func(val, lo, hi float64) float64 {
		if val < lo {
			penalty += (lo - val) * (lo - val)
			return lo
		}
		if val > hi {
			penalty += (val - hi) * (val - hi)
			return hi
		}
		return val
	}

	adj := Identity()
	adj.Black = clampTo(v[0], 0.0, 1.0-minSpan)
	adj.White = clampTo(v[1], adj.Black+minSpan, 1.0)
	adj.Gamma = clampTo(v[2], gammaMin, gammaMax)
	if fitOut {
		adj.OutBlack = clampTo(v[3], 0.0, 1.0-minSpan)
		adj.OutWhite = clampTo(v[4], adj.OutBlack+minSpan, 1.0)
	}
	return adj, penaltyWeight * penalty
}

func meanSquaredError(a Adjustment, x, y []float64) float64 {
	if len(x) == 0 {
		return 0.0
	}
	sum := 0.0
	for i := range x {
		d := a.Apply(x[i]) - y[i]
		sum += d * d
	}
	return sum / float64(len(x))
}

func finiteVec(v []float64) bool {
	for _, f := range v {
		if !isFinite(f) {
			return false
		}
	}
	return true
}

type fitJob struct {
	// Inputs for the job
	Channel int
	Set     SampleSet
	Cfg     Config

	// Outputs
	Adj     Adjustment
	Info    FitInfo
	Err     error
}

// Fit runs FitChannel for every channel on a pool of goroutines. The
// channels are independent, so the jobs just fan out and the results
// join back up by channel index - no shared state. If any channels
// fail, the error for the lowest-numbered one is returned (alongside
// whatever did fit).
func Fit(sets []SampleSet, cfg Config) ([]Adjustment, []FitInfo, error) {
	if len(sets) == 0 {
		return nil, nil, &DimensionError{Op: "fit", Got: Shape{}}
	}

	var wg sync.WaitGroup
	jobsChan    := make(chan fitJob, len(sets))
	resultsChan := make(chan fitJob, len(sets))

	// Kick off worker pool
	nWorkers := cfg.NumWorkers(len(sets))
	for i:=0; i<nWorkers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			for job := range jobsChan {
				job.Adj, job.Info, job.Err = FitChannel(job.Set, job.Channel, job.Cfg)
				resultsChan<- job
			}
		}()
	}

	// Feed in jobs
	for c, set := range sets {
		jobsChan<- fitJob{Channel: c, Set: set, Cfg: cfg}
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	adjs  := make([]Adjustment, len(sets))
	infos := make([]FitInfo, len(sets))
	errs  := make([]error, len(sets))
	for job := range resultsChan {
		adjs[job.Channel] = job.Adj
		infos[job.Channel] = job.Info
		errs[job.Channel] = job.Err
	}

	for _, err := range errs {
		if err != nil {
			return adjs, infos, err
		}
	}
	return adjs, infos, nil
}

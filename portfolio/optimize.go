package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/stats"
	"github.com/banachtech/quant-toolkit/util"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

type Objective int

const (
	MaxSharpe Objective = iota
	MinVariance
)

func (o Objective) String() string {
	switch o {
	case MaxSharpe:
		return "max_sharpe"
	case MinVariance:
		return "min_variance"
	}
	return fmt.Sprintf("Objective(%d)", int(o))
}

func ParseObjective(s string) (Objective, error) {
	switch s {
	case "max_sharpe", "":
		return MaxSharpe, nil
	case "min_variance":
		return MinVariance, nil
	}
	return 0, qerr.Validation("objective", "unknown objective %q", s)
}

// Options tunes the solvers. Zero values select the defaults.
type Options struct {
	// MaxIterations is the budget of the first attempt; each retry has four
	// times the budget of the previous one.
	MaxIterations int
	// Retries is the number of extra attempts; negative disables them.
	Retries int
	// FallbackSamples is the size of the random sample searched when every
	// attempt fails.
	FallbackSamples int
	Source          rand.Source
	Logger          *zap.Logger
}

const (
	defaultMaxIterations   = 10_000
	defaultRetries         = 1
	defaultFallbackSamples = 50_000
	gapTolerance           = 1e-12
)

func (o Options) withDefaults() Options {
	if o.MaxIterations < 1 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.Retries < 0 {
		o.Retries = 0
	} else if o.Retries == 0 {
		o.Retries = defaultRetries
	}
	if o.FallbackSamples < 1 {
		o.FallbackSamples = defaultFallbackSamples
	}
	if o.Source == nil {
		o.Source = util.NewSource(util.DefaultSeed)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Result is an optimised portfolio. Approximate marks a result taken from
// random sampling after the solver failed.
type Result struct {
	Weights     Weights `json:"weights"`
	Return      float64 `json:"return"`
	Risk        float64 `json:"risk"`
	Sharpe      float64 `json:"sharpe"`
	Approximate bool    `json:"approximate"`
}

func newResult(m stats.Moments, w []float64, rf float64) Result {
	s := evaluate(m, w, rf)
	return Result{Weights: w, Return: s.Return, Risk: s.Risk, Sharpe: s.Sharpe}
}

// Optimize finds long-only, fully invested weights that maximise the Sharpe
// ratio or minimise variance. If every attempt fails to converge it returns
// the better of the solver's last iterate and the best of a random sample,
// flagged Approximate, together with an *qerr.OptimizationError.
func Optimize(m stats.Moments, obj Objective, rf float64, opts Options) (Result, error) {
	if err := checkMoments(m); err != nil {
		return Result{}, err
	}
	if obj != MaxSharpe && obj != MinVariance {
		return Result{}, qerr.Validation("objective", "unknown objective %d", int(obj))
	}
	lmax, err := spectrum(m.Cov)
	if err != nil {
		return Result{}, err
	}
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("objective", obj.String()), zap.Int("assets", m.Len()))

	budget := opts.MaxIterations
	var (
		reason string
		last   []float64
	)
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		var (
			w  []float64
			ok bool
		)
		if obj == MinVariance {
			w, ok = solveQP(m.Cov, nil, 0, lmax, budget)
			if !ok {
				reason = "duality gap above tolerance"
			}
		} else {
			w, ok, reason = maxSharpe(m, rf, budget)
		}
		if ok {
			log.Debug("optimised", zap.Int("attempt", attempt), zap.Int("budget", budget))
			return newResult(m, w, rf), nil
		}
		if w != nil {
			last = w
		}
		log.Warn("optimiser did not converge, retrying",
			zap.Int("attempt", attempt),
			zap.Int("budget", budget),
			zap.String("reason", reason))
		budget *= 4
	}

	sample, err := GenerateRandomPortfolios(m, opts.FallbackSamples, opts.Source)
	if err != nil {
		return Result{}, err
	}
	res := newResult(m, sample.Weights[sample.best(obj, rf)], rf)
	if last != nil {
		if cand := newResult(m, last, rf); better(obj, cand, res) {
			res = cand
		}
	}
	res.Approximate = true
	log.Warn("returning approximate portfolio", zap.Int("samples", opts.FallbackSamples))
	return res, &qerr.OptimizationError{Objective: obj.String(), Iterations: budget / 4, Reason: reason}
}

// better reports whether a scores at least as well as b on the objective.
func better(obj Objective, a, b Result) bool {
	if obj == MinVariance {
		return a.Risk <= b.Risk
	}
	return a.Risk > 0 && a.Sharpe >= b.Sharpe
}

// solveQP minimises f(w) = w'Cw - lambda*mu'w over the simplex by
// accelerated projected gradient steps of size 1/L, L = 2*lmax, resetting the
// momentum whenever a step turns against it. It stops once the Frank-Wolfe
// gap, an upper bound on f(w) - f*, falls below gapTolerance relative to the
// size of the objective, and reports whether that happened within maxIter
// steps. The last iterate is returned either way.
func solveQP(cov *mat.SymDense, mu []float64, lambda, lmax float64, maxIter int) ([]float64, bool) {
	n := cov.SymmetricDim()
	w := EqualWeights(n)
	if lmax == 0 {
		// zero covariance: only the linear term matters
		if lambda == 0 || mu == nil {
			return w, true
		}
		return corner(mu), true
	}
	q := newQuadratic(cov, mu, lambda)
	step := 1 / (2 * lmax)
	floor := 1e-4 * lmax

	x := []float64(w)
	y := append([]float64(nil), x...)
	next := make([]float64, n)
	t := 1.0
	for it := 0; it < maxIter; it++ {
		if q.settled(x, floor) {
			return x, true
		}
		g := q.grad(y)
		for i := range next {
			next[i] = y[i] - step*g[i]
		}
		projectSimplex(next)

		dir := 0.0
		for i := range next {
			dir += (y[i] - next[i]) * (next[i] - x[i])
		}
		beta := 0.0
		if dir > 0 {
			t = 1
		} else {
			tn := (1 + math.Sqrt(1+4*t*t)) / 2
			beta = (t - 1) / tn
			t = tn
		}
		for i := range y {
			y[i] = next[i] + beta*(next[i]-x[i])
		}
		copy(x, next)
	}
	return x, q.settled(x, floor)
}

// quadratic is f(w) = w'Cw - lambda*mu'w with scratch space for gradients.
type quadratic struct {
	cov    *mat.SymDense
	mu     []float64
	lambda float64
	cw     *mat.VecDense
	g      []float64
}

func newQuadratic(cov *mat.SymDense, mu []float64, lambda float64) *quadratic {
	n := cov.SymmetricDim()
	if mu == nil {
		lambda = 0
	}
	return &quadratic{cov: cov, mu: mu, lambda: lambda, cw: mat.NewVecDense(n, nil), g: make([]float64, n)}
}

func (q *quadratic) linear(w []float64) float64 {
	if q.lambda == 0 {
		return 0
	}
	return q.lambda * floats.Dot(q.mu, w)
}

// grad returns 2Cw - lambda*mu in shared scratch space.
func (q *quadratic) grad(w []float64) []float64 {
	q.cw.MulVec(q.cov, mat.NewVecDense(len(w), w))
	for i := range q.g {
		q.g[i] = 2 * q.cw.AtVec(i)
		if q.lambda != 0 {
			q.g[i] -= q.lambda * q.mu[i]
		}
	}
	return q.g
}

// settled reports whether the Frank-Wolfe gap g'w - min(g) at w is within
// gapTolerance of the objective scale w'Cw + |lambda*mu'w|, never measured
// against less than floor.
func (q *quadratic) settled(w []float64, floor float64) bool {
	g := q.grad(w)
	gap := floats.Dot(g, w) - floats.Min(g)
	scale := math.Max(variance(q.cov, w)+math.Abs(q.linear(w)), floor)
	return gap <= gapTolerance*scale
}

func copyVec(x *mat.VecDense) []float64 {
	out := make([]float64, x.Len())
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out
}

// corner puts all weight on the asset with the highest mean.
func corner(mu []float64) []float64 {
	w := make([]float64, len(mu))
	best := 0
	for i, v := range mu {
		if v > mu[best] {
			best = i
		}
	}
	w[best] = 1
	return w
}

// projectSimplex replaces v with its Euclidean projection onto
// {w : w >= 0, sum w = 1}.
func projectSimplex(v []float64) {
	u := make([]float64, len(v))
	copy(u, v)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))
	cum, theta := 0.0, 0.0
	for j, x := range u {
		cum += x
		t := (cum - 1) / float64(j+1)
		if x-t > 0 {
			theta = t
		}
	}
	for i := range v {
		v[i] = math.Max(v[i]-theta, 0)
	}
}

var converged = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.GradientThreshold:   true,
	optimize.FunctionConvergence: true,
}

// maxSharpe maximises the Sharpe ratio over softmax-parameterised weights,
// which keeps the long-only and budget constraints without penalties. BFGS
// runs first with Nelder-Mead as the fallback.
func maxSharpe(m stats.Moments, rf float64, budget int) ([]float64, bool, string) {
	n := m.Len()
	mu := mat.NewVecDense(n, m.Mean)
	w := mat.NewVecDense(n, nil)
	sw := mat.NewVecDense(n, nil)

	setWeights := func(x []float64) {
		hi := x[0]
		for _, v := range x {
			hi = math.Max(hi, v)
		}
		sum := 0.0
		for i, v := range x {
			e := math.Exp(v - hi)
			w.SetVec(i, e)
			sum += e
		}
		w.ScaleVec(1/sum, w)
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			setWeights(x)
			v := mat.Inner(w, m.Cov, w)
			if v <= 0 {
				return math.Inf(1)
			}
			return -(mat.Dot(mu, w) - rf) / math.Sqrt(v)
		},
		Grad: func(grad, x []float64) {
			setWeights(x)
			sw.MulVec(m.Cov, w)
			v := mat.Dot(w, sw)
			sd := math.Sqrt(v)
			excess := mat.Dot(mu, w) - rf
			// gradient of -Sharpe with respect to w, then through softmax
			gw := make([]float64, n)
			dot := 0.0
			for i := range gw {
				gw[i] = -(mu.AtVec(i)*sd - excess*sw.AtVec(i)/sd) / v
				dot += w.AtVec(i) * gw[i]
			}
			for i := range grad {
				grad[i] = w.AtVec(i) * (gw[i] - dot)
			}
		},
	}
	settings := &optimize.Settings{MajorIterations: budget}
	x0 := make([]float64, n)

	res, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if err != nil || !converged[res.Status] {
		res, err = optimize.Minimize(problem, x0, &optimize.Settings{
			MajorIterations: budget,
			Converger:       &optimize.FunctionConverge{Absolute: 1e-12, Iterations: 100},
		}, &optimize.NelderMead{})
	}
	if res == nil {
		return nil, false, err.Error()
	}
	setWeights(res.X)
	if err != nil {
		return copyVec(w), false, err.Error()
	}
	if !converged[res.Status] {
		return copyVec(w), false, fmt.Sprintf("status %v", res.Status)
	}
	return copyVec(w), true, ""
}

// EfficientFrontier traces points portfolios from the minimum-variance
// portfolio towards the highest-return asset by sweeping the risk aversion
// of w'Cw - lambda*mu'w. Results are ordered by increasing risk.
func EfficientFrontier(m stats.Moments, points int, rf float64, opts Options) ([]Result, error) {
	if err := checkMoments(m); err != nil {
		return nil, err
	}
	if err := qerr.Count("points", points, 2); err != nil {
		return nil, err
	}
	lmax, err := spectrum(m.Cov)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	lo, hi := m.Mean[0], m.Mean[0]
	for _, v := range m.Mean {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	// lambda at which the linear term dominates the quadratic one
	scale := 4 * lmax / math.Max(hi-lo, 1e-12)

	out := make([]Result, 0, points)
	for k := 0; k < points; k++ {
		lambda := 0.0
		if k > 0 {
			lambda = scale * math.Pow(10, -3+4*float64(k-1)/float64(max(points-2, 1)))
		}
		w, ok := solveQP(m.Cov, m.Mean, lambda, lmax, opts.MaxIterations*(1<<(2*opts.Retries)))
		if !ok {
			opts.Logger.Warn("frontier point did not converge", zap.Float64("lambda", lambda))
		}
		out = append(out, newResult(m, w, rf))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Risk < out[j].Risk })
	return out, nil
}

// Package portfolio builds long-only, fully invested mean-variance
// portfolios: random sampling, optimisation, the efficient frontier and CAPM
// estimates.
package portfolio

import (
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/stats"
	"gonum.org/v1/gonum/mat"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.
const WeightTolerance = 1e-6

// Weights holds one non-negative weight per asset, in Moments order.
type Weights []float64

func (w Weights) Validate(assets int) error {
	if len(w) != assets {
		return qerr.Validation("weights", "%d weights for %d assets", len(w), assets)
	}
	sum := 0.0
	for i, v := range w {
		if v < 0 || math.IsNaN(v) {
			return qerr.Validation("weights", "weight %d is %v, must be non-negative", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > WeightTolerance {
		return qerr.Validation("weights", "sum to %v, want 1", sum)
	}
	return nil
}

// EqualWeights returns 1/n for every asset.
func EqualWeights(n int) Weights {
	w := make(Weights, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

// Stats are the per-period return, standard deviation and Sharpe ratio of a
// portfolio.
type Stats struct {
	Return float64 `json:"return"`
	Risk   float64 `json:"risk"`
	Sharpe float64 `json:"sharpe"`
}

// Evaluate computes portfolio statistics for w. The Sharpe ratio of a
// riskless portfolio is reported as 0.
func Evaluate(m stats.Moments, w Weights, rf float64) (Stats, error) {
	if err := checkMoments(m); err != nil {
		return Stats{}, err
	}
	if err := w.Validate(m.Len()); err != nil {
		return Stats{}, err
	}
	return evaluate(m, w, rf), nil
}

func evaluate(m stats.Moments, w []float64, rf float64) Stats {
	x := mat.NewVecDense(len(w), w)
	ret := mat.Dot(mat.NewVecDense(len(m.Mean), m.Mean), x)
	v := mat.Inner(x, m.Cov, x)
	s := Stats{Return: ret, Risk: math.Sqrt(math.Max(v, 0))}
	if s.Risk > 0 {
		s.Sharpe = (ret - rf) / s.Risk
	}
	return s
}

func variance(cov *mat.SymDense, w []float64) float64 {
	x := mat.NewVecDense(len(w), w)
	return mat.Inner(x, cov, x)
}

func checkMoments(m stats.Moments) error {
	if err := qerr.Count("assets", m.Len(), 1); err != nil {
		return err
	}
	if m.Cov == nil || m.Cov.SymmetricDim() != m.Len() {
		return qerr.Validation("cov", "need a %dx%d covariance matrix", m.Len(), m.Len())
	}
	return nil
}

// spectrum checks that the covariance matrix is positive semidefinite and
// returns its largest eigenvalue. Singular matrices are accepted.
func spectrum(cov *mat.SymDense) (float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(cov, false); !ok {
		return 0, qerr.Domain("cov", "eigen decomposition failed")
	}
	vals := eig.Values(nil)
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo < -1e-10*math.Max(1, math.Abs(hi)) {
		return 0, qerr.Domain("cov", "not positive semidefinite, smallest eigenvalue %v", lo)
	}
	return math.Max(hi, 0), nil
}

// Package risk estimates Value-at-Risk parametrically, by simulation and
// from historical returns.
package risk

import (
	"context"
	"math"
	"sort"

	"github.com/banachtech/quant-toolkit/mc"
	"github.com/banachtech/quant-toolkit/portfolio"
	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/stats"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func checkVaR(position, confidence, horizon float64) error {
	if err := qerr.Positive("position", position); err != nil {
		return err
	}
	if err := qerr.Probability("confidence", confidence); err != nil {
		return err
	}
	return qerr.Positive("horizon", horizon)
}

// ParametricVaR is the variance-covariance VaR of a position whose
// per-period returns are normal with mean mu and standard deviation sigma:
// position (sigma sqrt(H) z - mu H), floored at zero.
func ParametricVaR(position, confidence, mu, sigma, horizon float64) (float64, error) {
	if err := checkVaR(position, confidence, horizon); err != nil {
		return 0, err
	}
	if sigma < 0 || math.IsNaN(sigma) {
		return 0, qerr.Validation("sigma", "%v must be non-negative", sigma)
	}
	if math.IsNaN(mu) || math.IsInf(mu, 0) {
		return 0, qerr.Validation("mu", "%v must be finite", mu)
	}
	z := distuv.UnitNormal.Quantile(confidence)
	loss := -position * (mu*horizon - sigma*math.Sqrt(horizon)*z)
	return math.Max(loss, 0), nil
}

// PortfolioParametricVaR applies ParametricVaR to the portfolio return
// distribution implied by weights w and per-period moments m.
func PortfolioParametricVaR(position float64, w portfolio.Weights, m stats.Moments, confidence, horizon float64) (float64, error) {
	s, err := portfolio.Evaluate(m, w, 0)
	if err != nil {
		return 0, err
	}
	return ParametricVaR(position, confidence, s.Return, s.Risk, horizon)
}

// MonteCarloVaR simulates the position with e. See mc.Engine.SimulateVaR.
func MonteCarloVaR(ctx context.Context, e *mc.Engine, position, confidence, mu, sigma, horizon float64, iterations int, src rand.Source) (float64, error) {
	res, err := e.SimulateVaR(ctx, position, mu, sigma, confidence, horizon, iterations, src)
	if err != nil {
		return 0, err
	}
	return res.Loss, nil
}

// MinObservations is the smallest history that resolves the
// (1-confidence) tail: ceil(1/(1-confidence)).
func MinObservations(confidence float64) int {
	// absorb representation error, e.g. 1/(1-0.99) = 100.000000000001
	return int(math.Ceil(1/(1-confidence) - 1e-9))
}

// EmpiricalVaR is -position times the (1-confidence) quantile of the
// historical returns, floored at zero. No distribution is assumed.
func EmpiricalVaR(position float64, returns []float64, confidence float64) (float64, error) {
	if err := checkVaR(position, confidence, 1); err != nil {
		return 0, err
	}
	if need := MinObservations(confidence); len(returns) < need {
		return 0, qerr.Validation("returns", "%d observations cannot resolve the %v tail, need %d", len(returns), 1-confidence, need)
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	q := stat.Quantile(1-confidence, stat.Empirical, sorted, nil)
	return math.Max(-position*q, 0), nil
}

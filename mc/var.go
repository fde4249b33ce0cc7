package mc

import (
	"context"
	"math"
	"sort"

	"github.com/banachtech/quant-toolkit/payoff"
	"github.com/banachtech/quant-toolkit/process"
	"github.com/banachtech/quant-toolkit/qerr"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// VaRResult is a loss estimate for a position at a confidence level over a
// horizon measured in the periods of mu and sigma. Loss is never negative.
type VaRResult struct {
	Position   float64 `json:"position"`
	Confidence float64 `json:"confidence"`
	Horizon    float64 `json:"horizon"`
	Loss       float64 `json:"loss"`
	Iterations int     `json:"iterations"`
}

// SimulateVaR grows the position as a GBM with per-period drift mu and
// volatility sigma over horizon periods, then reports the position less the
// (1-confidence) quantile of the simulated terminal values.
func (e *Engine) SimulateVaR(ctx context.Context, position, mu, sigma, confidence, horizon float64, iterations int, src rand.Source) (VaRResult, error) {
	if err := qerr.Positive("position", position); err != nil {
		return VaRResult{}, err
	}
	if err := qerr.Probability("confidence", confidence); err != nil {
		return VaRResult{}, err
	}
	if err := qerr.Positive("horizon", horizon); err != nil {
		return VaRResult{}, err
	}
	m := process.GBM{S0: position, Mu: mu, Sigma: sigma}
	if err := m.Validate(); err != nil {
		return VaRResult{}, err
	}
	n, err := e.budget("simulate_var", iterations)
	if err != nil {
		return VaRResult{}, err
	}

	var value payoff.Payoff = payoff.Terminal{}
	terminal := make([]float64, n)
	err = e.run(ctx, "simulate_var", n, src, func(c chunk) error {
		d := distuv.Normal{Mu: 0, Sigma: 1, Src: c.Src}
		path := []float64{position, 0}
		for k := c.Offset; k < c.Offset+c.Size; k++ {
			path[1] = m.Step(position, horizon, d.Rand())
			terminal[k] = value.Payout(path)
		}
		return nil
	})
	if err != nil {
		return VaRResult{}, err
	}
	sort.Float64s(terminal)
	q := stat.Quantile(1-confidence, stat.Empirical, terminal, nil)
	return VaRResult{
		Position:   position,
		Confidence: confidence,
		Horizon:    horizon,
		Loss:       math.Max(position-q, 0),
		Iterations: n,
	}, nil
}

package mc

import (
	"context"
	"math"

	"github.com/banachtech/quant-toolkit/payoff"
	"github.com/banachtech/quant-toolkit/pricing"
	"github.com/banachtech/quant-toolkit/process"
	"github.com/banachtech/quant-toolkit/qerr"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Estimate is a Monte Carlo price with its standard error.
type Estimate struct {
	Price      float64 `json:"price"`
	StdError   float64 `json:"std_error"`
	Iterations int     `json:"iterations"`
}

// PriceOption prices a European contract by sampling the terminal spot under
// the risk-neutral measure, so the drift is the contract rate. The estimate
// converges to the Black-Scholes price as iterations grow.
func (e *Engine) PriceOption(ctx context.Context, c pricing.Contract, iterations int, src rand.Source) (Estimate, error) {
	if err := c.Validate(); err != nil {
		return Estimate{}, err
	}
	if err := qerr.Positive("maturity", c.Maturity); err != nil {
		return Estimate{}, err
	}
	if c.Volatility < 0 {
		return Estimate{}, qerr.Validation("volatility", "%v must be non-negative", c.Volatility)
	}
	return e.PricePayoff(ctx, process.GBM{S0: c.Spot, Mu: c.Rate, Sigma: c.Volatility}, payoff.FromContract(c), c.Maturity, c.Rate, iterations, src)
}

// PricePayoff averages the discounted payout of p over single-step GBM
// terminal values at T.
func (e *Engine) PricePayoff(ctx context.Context, m process.GBM, p payoff.Payoff, T, rate float64, iterations int, src rand.Source) (Estimate, error) {
	if err := m.Validate(); err != nil {
		return Estimate{}, err
	}
	n, err := e.budget("price_option", iterations)
	if err != nil {
		return Estimate{}, err
	}
	parts := make([]moments, e.chunks(n))
	err = e.run(ctx, "price_option", n, src, func(c chunk) error {
		d := distuv.Normal{Mu: 0, Sigma: 1, Src: c.Src}
		path := make([]float64, 1)
		acc := &parts[c.Index]
		for k := 0; k < c.Size; k++ {
			path[0] = m.Step(m.S0, T, d.Rand())
			acc.add(p.Payout(path))
		}
		return nil
	})
	if err != nil {
		return Estimate{}, err
	}
	disc := math.Exp(-rate * T)
	total := combine(parts)
	return Estimate{Price: disc * total.mean(), StdError: disc * total.stdErr(), Iterations: n}, nil
}

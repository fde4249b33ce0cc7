package pricing

import (
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
	"gonum.org/v1/gonum/optimize"
)

const ivolIterations = 500

// ImpliedVolatility finds the volatility at which the Black-Scholes price of
// c equals price. The search runs Nelder-Mead on log-volatility, which keeps
// the candidate positive.
func ImpliedVolatility(c Contract, price float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return math.NaN(), err
	}
	if !(c.Maturity > 0) {
		return math.NaN(), qerr.Domain("maturity", "%v must be positive", c.Maturity)
	}
	lo, hi := Bounds(c)
	if !(price > lo && price < hi) {
		return math.NaN(), qerr.Domain("price", "%v is outside the no-arbitrage range (%v, %v)", price, lo, hi)
	}

	loss := func(par []float64) float64 {
		c.Volatility = math.Exp(par[0])
		p, err := Price(c)
		if err != nil || math.IsNaN(p) {
			return math.Inf(1)
		}
		return math.Abs(p - price)
	}
	problem := optimize.Problem{Func: loss}
	settings := &optimize.Settings{
		MajorIterations: ivolIterations,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-12, Iterations: 50},
	}
	res, err := optimize.Minimize(problem, []float64{math.Log(0.5)}, settings, &optimize.NelderMead{})
	if err != nil {
		return math.NaN(), &qerr.OptimizationError{Objective: "implied_volatility", Iterations: ivolIterations, Reason: err.Error()}
	}
	vol := math.Exp(res.X[0])
	if res.F > 1e-8*math.Max(1, price) {
		return vol, &qerr.OptimizationError{Objective: "implied_volatility", Iterations: res.Stats.MajorIterations, Reason: "price residual too large"}
	}
	return vol, nil
}

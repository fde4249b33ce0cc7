package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Greeks are the first-order price sensitivities, plus gamma. Theta is per
// year, Vega per unit of volatility and Rho per unit of rate.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

func ComputeGreeks(c Contract) (Greeks, error) {
	d1, d2, err := D1D2(c)
	if err != nil {
		return Greeks{}, err
	}
	N := distuv.UnitNormal
	pdf := N.Prob(d1)
	st := math.Sqrt(c.Maturity)
	pvk := c.Strike * c.Discount()

	g := Greeks{
		Gamma: pdf / (c.Spot * c.Volatility * st),
		Vega:  c.Spot * pdf * st,
	}
	decay := -c.Spot * pdf * c.Volatility / (2 * st)
	if c.Style == Put {
		g.Delta = N.CDF(d1) - 1
		g.Theta = decay + c.Rate*pvk*N.CDF(-d2)
		g.Rho = -c.Maturity * pvk * N.CDF(-d2)
	} else {
		g.Delta = N.CDF(d1)
		g.Theta = decay - c.Rate*pvk*N.CDF(d2)
		g.Rho = c.Maturity * pvk * N.CDF(d2)
	}
	return g, nil
}

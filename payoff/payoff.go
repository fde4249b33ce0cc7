// Package payoff defines the cash flows that the Monte Carlo engine averages
// over simulated paths.
package payoff

import (
	"math"

	"github.com/banachtech/quant-toolkit/pricing"
)

// Payoff computes the undiscounted amount paid at maturity for one simulated
// path. path[0] is the initial spot and the last element the terminal value.
type Payoff interface {
	Payout(path []float64) float64
}

// Vanilla is a European call or put on the terminal value of the path.
type Vanilla struct {
	Strike float64
	Style  pricing.Style
}

// FromContract builds the payoff of a vanilla contract.
func FromContract(c pricing.Contract) Vanilla {
	return Vanilla{Strike: c.Strike, Style: c.Style}
}

func (v Vanilla) Payout(path []float64) float64 {
	if len(path) == 0 {
		return 0
	}
	s := path[len(path)-1]
	if v.Style == pricing.Put {
		return math.Max(v.Strike-s, 0)
	}
	return math.Max(s-v.Strike, 0)
}

// Terminal pays the terminal value itself. Simulated VaR values the position
// with it.
type Terminal struct{}

func (Terminal) Payout(path []float64) float64 {
	if len(path) == 0 {
		return 0
	}
	return path[len(path)-1]
}

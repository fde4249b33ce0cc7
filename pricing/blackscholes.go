// Package pricing holds closed-form pricers: Black-Scholes for European
// options and discounting for bonds.
package pricing

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
	"gonum.org/v1/gonum/stat/distuv"
)

type Style int

const (
	Call Style = iota
	Put
)

func (s Style) String() string {
	switch s {
	case Call:
		return "call"
	case Put:
		return "put"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

func ParseStyle(s string) (Style, error) {
	switch s {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return 0, qerr.Validation("style", "unknown option style %q", s)
}

func (s Style) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Style) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	v, err := ParseStyle(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type Exercise int

// European is the only supported exercise style.
const European Exercise = 0

// Contract fully specifies one vanilla option pricing request. Rate and
// Volatility are annualised decimals, Maturity is in years.
type Contract struct {
	Spot       float64  `json:"spot"`
	Strike     float64  `json:"strike"`
	Maturity   float64  `json:"maturity"`
	Rate       float64  `json:"rate"`
	Volatility float64  `json:"volatility"`
	Style      Style    `json:"style"`
	Exercise   Exercise `json:"-"`
}

// Validate checks the inputs every pricer needs. Zero volatility or maturity
// pass here; formulas that divide by them report a DomainError instead.
func (c Contract) Validate() error {
	if err := qerr.Positive("spot", c.Spot); err != nil {
		return err
	}
	if err := qerr.Positive("strike", c.Strike); err != nil {
		return err
	}
	if c.Style != Call && c.Style != Put {
		return qerr.Validation("style", "unknown option style %d", int(c.Style))
	}
	if c.Exercise != European {
		return qerr.Validation("exercise", "only European exercise is supported")
	}
	if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
		return qerr.Validation("rate", "%v must be finite", c.Rate)
	}
	if math.IsNaN(c.Volatility) || math.IsNaN(c.Maturity) {
		return qerr.Validation("volatility", "volatility and maturity must be numbers")
	}
	return nil
}

// Discount returns exp(-rT).
func (c Contract) Discount() float64 {
	return math.Exp(-c.Rate * c.Maturity)
}

// D1D2 returns the Black-Scholes d1 and d2 terms.
func D1D2(c Contract) (float64, float64, error) {
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	if !(c.Volatility > 0) {
		return 0, 0, qerr.Domain("volatility", "%v must be positive", c.Volatility)
	}
	if !(c.Maturity > 0) {
		return 0, 0, qerr.Domain("maturity", "%v must be positive", c.Maturity)
	}
	x := c.Volatility * math.Sqrt(c.Maturity)
	d1 := (math.Log(c.Spot/c.Strike) + (c.Rate+0.5*c.Volatility*c.Volatility)*c.Maturity) / x
	d2 := d1 - x
	return d1, d2, nil
}

// CallPrice is the Black-Scholes price of a European call.
func CallPrice(c Contract) (float64, error) {
	d1, d2, err := D1D2(c)
	if err != nil {
		return math.NaN(), err
	}
	N := distuv.UnitNormal
	return c.Spot*N.CDF(d1) - c.Strike*c.Discount()*N.CDF(d2), nil
}

// PutPrice is the Black-Scholes price of a European put.
func PutPrice(c Contract) (float64, error) {
	d1, d2, err := D1D2(c)
	if err != nil {
		return math.NaN(), err
	}
	N := distuv.UnitNormal
	return c.Strike*c.Discount()*N.CDF(-d2) - c.Spot*N.CDF(-d1), nil
}

// Price dispatches on the contract style.
func Price(c Contract) (float64, error) {
	if c.Style == Put {
		return PutPrice(c)
	}
	return CallPrice(c)
}

// Bounds returns the no-arbitrage lower and upper price bounds of c.
func Bounds(c Contract) (float64, float64) {
	pvk := c.Strike * c.Discount()
	if c.Style == Put {
		return math.Max(pvk-c.Spot, 0), pvk
	}
	return math.Max(c.Spot-pvk, 0), c.Spot
}

// Package stats turns price series into returns and moment estimates.
package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/banachtech/quant-toolkit/qerr"
)

// TradingDaysPerYear is the annualisation factor for daily equity data.
const TradingDaysPerYear = 252

type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries is an ordered, validated sequence of closes for one asset.
type PriceSeries struct {
	asset  string
	points []PricePoint
}

// NewPriceSeries validates and copies points: dates must be strictly
// increasing and every price positive.
func NewPriceSeries(asset string, points []PricePoint) (PriceSeries, error) {
	for i, p := range points {
		if err := qerr.Positive(fmt.Sprintf("%s price[%d]", asset, i), p.Price); err != nil {
			return PriceSeries{}, err
		}
		if i > 0 && !p.Date.After(points[i-1].Date) {
			return PriceSeries{}, qerr.Validation(fmt.Sprintf("%s date[%d]", asset, i), "%s is not after %s", p.Date.Format("2006-01-02"), points[i-1].Date.Format("2006-01-02"))
		}
	}
	cp := make([]PricePoint, len(points))
	copy(cp, points)
	return PriceSeries{asset: asset, points: cp}, nil
}

// FromSlices zips parallel date and price slices into a PriceSeries.
func FromSlices(asset string, dates []time.Time, prices []float64) (PriceSeries, error) {
	if len(dates) != len(prices) {
		return PriceSeries{}, qerr.Validation(asset, "%d dates for %d prices", len(dates), len(prices))
	}
	points := make([]PricePoint, len(dates))
	for i := range dates {
		points[i] = PricePoint{Date: dates[i], Price: prices[i]}
	}
	return NewPriceSeries(asset, points)
}

func (s PriceSeries) Asset() string { return s.asset }

func (s PriceSeries) Len() int { return len(s.points) }

func (s PriceSeries) Points() []PricePoint {
	cp := make([]PricePoint, len(s.points))
	copy(cp, s.points)
	return cp
}

// Last returns the most recent close.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

type ReturnMode int

const (
	Simple ReturnMode = iota
	Log
)

func (m ReturnMode) String() string {
	switch m {
	case Simple:
		return "simple"
	case Log:
		return "log"
	}
	return fmt.Sprintf("ReturnMode(%d)", int(m))
}

// ParseReturnMode maps "simple" or "log" to a ReturnMode.
func ParseReturnMode(s string) (ReturnMode, error) {
	switch s {
	case "simple":
		return Simple, nil
	case "log", "":
		return Log, nil
	}
	return 0, qerr.Validation("mode", "unknown return mode %q", s)
}

// ReturnSeries holds period returns; Dates[i] is the date of the later
// close of pair i.
type ReturnSeries struct {
	Asset  string
	Mode   ReturnMode
	Dates  []time.Time
	Values []float64
}

func (r ReturnSeries) Len() int { return len(r.Values) }

// ComputeReturns derives simple or log returns from prices.
func ComputeReturns(prices PriceSeries, mode ReturnMode) (ReturnSeries, error) {
	if err := qerr.Count(prices.asset+" prices", len(prices.points), 2); err != nil {
		return ReturnSeries{}, err
	}
	if mode != Simple && mode != Log {
		return ReturnSeries{}, qerr.Validation("mode", "unknown return mode %d", int(mode))
	}
	n := len(prices.points) - 1
	out := ReturnSeries{
		Asset:  prices.asset,
		Mode:   mode,
		Dates:  make([]time.Time, n),
		Values: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p0, p1 := prices.points[i].Price, prices.points[i+1].Price
		out.Dates[i] = prices.points[i+1].Date
		if mode == Log {
			out.Values[i] = math.Log(p1 / p0)
		} else {
			out.Values[i] = (p1 - p0) / p0
		}
	}
	return out, nil
}

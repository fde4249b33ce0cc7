package mc

import (
	"context"
	"sort"

	"github.com/banachtech/quant-toolkit/process"
	"github.com/banachtech/quant-toolkit/qerr"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// Band is a pair of lower and upper quantile levels in (0, 1).
type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// DefaultBand is the central 95% interval.
var DefaultBand = Band{Lower: 0.025, Upper: 0.975}

func (b Band) Validate() error {
	if err := qerr.Probability("band.lower", b.Lower); err != nil {
		return err
	}
	if err := qerr.Probability("band.upper", b.Upper); err != nil {
		return err
	}
	if b.Lower >= b.Upper {
		return qerr.Validation("band", "lower %v must be below upper %v", b.Lower, b.Upper)
	}
	return nil
}

// StepSummary describes the cross-section of simulated paths at one step.
type StepSummary struct {
	Step  int     `json:"step"`
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type Forecast struct {
	Paths   process.Paths `json:"-"`
	Summary []StepSummary `json:"summary"`
}

// ForecastPrice simulates full paths of m, a GBM under its real-world drift
// or a mean-reverting rate, and summarises them at every step with the mean
// and the quantile band. A zero band means DefaultBand.
func (e *Engine) ForecastPrice(ctx context.Context, m process.Model, T float64, steps, iterations int, band Band, src rand.Source) (Forecast, error) {
	if band == (Band{}) {
		band = DefaultBand
	}
	if err := band.Validate(); err != nil {
		return Forecast{}, err
	}
	n, err := e.budget("forecast_price", iterations)
	if err != nil {
		return Forecast{}, err
	}
	if m == nil {
		return Forecast{}, qerr.Validation("process", "a process model is required")
	}
	if err := m.Validate(); err != nil {
		return Forecast{}, err
	}
	if err := process.CheckGrid(T, steps, 1); err != nil {
		return Forecast{}, err
	}

	paths := make(process.Paths, n)
	err = e.run(ctx, "forecast_price", n, src, func(c chunk) error {
		p, err := m.Simulate(T, steps, c.Size, c.Src)
		if err != nil {
			return err
		}
		copy(paths[c.Offset:c.Offset+c.Size], p)
		return nil
	})
	if err != nil {
		return Forecast{}, err
	}

	summary := make([]StepSummary, steps+1)
	for k := range summary {
		col := paths.Column(k)
		sort.Float64s(col)
		summary[k] = StepSummary{
			Step:  k,
			Mean:  stat.Mean(col, nil),
			Lower: stat.Quantile(band.Lower, stat.Empirical, col, nil),
			Upper: stat.Quantile(band.Upper, stat.Empirical, col, nil),
		}
	}
	return Forecast{Paths: paths, Summary: summary}, nil
}

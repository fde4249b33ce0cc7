// Package process simulates discretised sample paths of the stochastic
// processes used by the pricing and risk engines.
package process

import (
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Paths holds one simulated path per row; each row has steps+1 values, the
// first being the initial value.
type Paths [][]float64

// Terminal returns the last value of every path.
func (p Paths) Terminal() []float64 {
	out := make([]float64, len(p))
	for i, row := range p {
		out[i] = row[len(row)-1]
	}
	return out
}

// Column returns the values of every path at step k.
func (p Paths) Column(k int) []float64 {
	out := make([]float64, len(p))
	for i, row := range p {
		out[i] = row[k]
	}
	return out
}

// Kind names the process families the engine can simulate.
type Kind string

const (
	KindGBM           Kind = "gbm"
	KindMeanReverting Kind = "mean_reverting"
)

// Model is a one-factor process that can be simulated on a uniform grid.
type Model interface {
	Validate() error
	Simulate(T float64, steps, paths int, src rand.Source) (Paths, error)
}

// Config selects a process family and its parameters. X0 is the initial
// value (spot for GBM, short rate for mean-reverting); Mu applies to GBM,
// Kappa and Theta to mean-reverting.
type Config struct {
	Kind  Kind    `json:"kind"`
	X0    float64 `json:"x0"`
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	Kappa float64 `json:"kappa"`
	Theta float64 `json:"theta"`
}

// Model builds the configured process. An empty Kind means GBM.
func (c Config) Model() (Model, error) {
	var m Model
	switch c.Kind {
	case KindGBM, "":
		m = GBM{S0: c.X0, Mu: c.Mu, Sigma: c.Sigma}
	case KindMeanReverting:
		m = MeanReverting{X0: c.X0, Kappa: c.Kappa, Theta: c.Theta, Sigma: c.Sigma}
	default:
		return nil, qerr.Validation("kind", "unknown process %q, want %s or %s", c.Kind, KindGBM, KindMeanReverting)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func newPaths(paths, steps int) Paths {
	buf := make([]float64, paths*(steps+1))
	out := make(Paths, paths)
	for i := range out {
		out[i] = buf[i*(steps+1) : (i+1)*(steps+1) : (i+1)*(steps+1)]
	}
	return out
}

// CheckGrid validates a simulation grid of steps intervals over [0, T].
func CheckGrid(T float64, steps, paths int) error {
	if err := qerr.Positive("T", T); err != nil {
		return err
	}
	if err := qerr.Count("steps", steps, 1); err != nil {
		return err
	}
	return qerr.Count("paths", paths, 1)
}

func normal(src rand.Source) distuv.Normal {
	return distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: src}
}

// SimulateWiener returns a standard Brownian motion sampled on steps equal
// intervals of [0, T], starting at 0.
func SimulateWiener(T float64, steps int, src rand.Source) ([]float64, error) {
	if err := CheckGrid(T, steps, 1); err != nil {
		return nil, err
	}
	d := normal(src)
	w := make([]float64, steps+1)
	sdt := math.Sqrt(T / float64(steps))
	for i := 0; i < steps; i++ {
		w[i+1] = w[i] + sdt*d.Rand()
	}
	return w, nil
}

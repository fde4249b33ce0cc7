package process

import (
	"fmt"
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// GBM is a geometric Brownian motion dS = mu S dt + sigma S dW.
type GBM struct {
	S0    float64 `json:"s0"`
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

func (m GBM) Validate() error {
	if err := qerr.Positive("S0", m.S0); err != nil {
		return err
	}
	if m.Sigma < 0 || math.IsNaN(m.Sigma) {
		return qerr.Validation("sigma", "%v must be non-negative", m.Sigma)
	}
	if math.IsNaN(m.Mu) || math.IsInf(m.Mu, 0) {
		return qerr.Validation("mu", "%v must be finite", m.Mu)
	}
	return nil
}

// Step advances s over dt given a standard normal draw z. The update is
// exact for GBM, so s stays strictly positive.
func (m GBM) Step(s, dt, z float64) float64 {
	return s * math.Exp((m.Mu-0.5*m.Sigma*m.Sigma)*dt+m.Sigma*math.Sqrt(dt)*z)
}

// SimulateGBM generates paths x (steps+1) GBM values on a uniform grid over
// [0, T]. Draws are taken path by path, so a given seed reproduces the same
// paths.
func SimulateGBM(m GBM, T float64, steps, paths int, src rand.Source) (Paths, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := CheckGrid(T, steps, paths); err != nil {
		return nil, err
	}
	d := normal(src)
	dt := T / float64(steps)
	out := newPaths(paths, steps)
	for _, row := range out {
		row[0] = m.S0
		for i := 0; i < steps; i++ {
			row[i+1] = m.Step(row[i], dt, d.Rand())
		}
	}
	return out, nil
}

func (m GBM) Simulate(T float64, steps, paths int, src rand.Source) (Paths, error) {
	return SimulateGBM(m, T, steps, paths, src)
}

// Basket is a set of GBM assets driven by correlated Brownian motions.
type Basket struct {
	Tickers []string
	Assets  []GBM
	Corr    *mat.SymDense
}

// SimulateBasket generates correlated GBM paths for every asset of b. The
// result is keyed by ticker; each entry has the shape of SimulateGBM output.
func SimulateBasket(b Basket, T float64, steps, paths int, src rand.Source) (map[string]Paths, error) {
	n := len(b.Assets)
	if err := qerr.Count("assets", n, 1); err != nil {
		return nil, err
	}
	if len(b.Tickers) != n {
		return nil, qerr.Validation("tickers", "%d tickers for %d assets", len(b.Tickers), n)
	}
	if b.Corr == nil || b.Corr.SymmetricDim() != n {
		return nil, qerr.Validation("corr", "need a %dx%d correlation matrix", n, n)
	}
	for i, a := range b.Assets {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Tickers[i], err)
		}
	}
	if err := CheckGrid(T, steps, paths); err != nil {
		return nil, err
	}
	dz, ok := distmv.NewNormal(make([]float64, n), b.Corr, src)
	if !ok {
		return nil, qerr.Domain("corr", "correlation matrix is not positive definite")
	}

	dt := T / float64(steps)
	out := make(map[string]Paths, n)
	for k, t := range b.Tickers {
		out[t] = newPaths(paths, steps)
		for l := 0; l < paths; l++ {
			out[t][l][0] = b.Assets[k].S0
		}
	}
	z := make([]float64, n)
	for l := 0; l < paths; l++ {
		for i := 0; i < steps; i++ {
			z = dz.Rand(z)
			for k, t := range b.Tickers {
				row := out[t][l]
				row[i+1] = b.Assets[k].Step(row[i], dt, z[k])
			}
		}
	}
	return out, nil
}

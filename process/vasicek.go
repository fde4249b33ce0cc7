package process

import (
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
	"golang.org/x/exp/rand"
)

// MeanReverting is an Ornstein-Uhlenbeck (Vasicek) process
// dx = kappa (theta - x) dt + sigma dW.
type MeanReverting struct {
	X0    float64 `json:"x0"`
	Kappa float64 `json:"kappa"`
	Theta float64 `json:"theta"`
	Sigma float64 `json:"sigma"`
}

func (m MeanReverting) Validate() error {
	if m.Kappa < 0 || math.IsNaN(m.Kappa) {
		return qerr.Validation("kappa", "%v is explosive, must be non-negative", m.Kappa)
	}
	if m.Sigma < 0 || math.IsNaN(m.Sigma) {
		return qerr.Validation("sigma", "%v must be non-negative", m.Sigma)
	}
	if math.IsNaN(m.X0) || math.IsNaN(m.Theta) {
		return qerr.Validation("x0", "initial value and long-run mean must be numbers")
	}
	return nil
}

// Step is one Euler update over dt.
func (m MeanReverting) Step(x, dt, z float64) float64 {
	return x + m.Kappa*(m.Theta-x)*dt + m.Sigma*math.Sqrt(dt)*z
}

// SimulateMeanReverting generates Euler paths of the process. Values are not
// floored: Vasicek rates can go negative, which is a property of the model.
func SimulateMeanReverting(m MeanReverting, T float64, steps, paths int, src rand.Source) (Paths, error) {
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
		row[0] = m.X0
		for i := 0; i < steps; i++ {
			row[i+1] = m.Step(row[i], dt, d.Rand())
		}
	}
	return out, nil
}

func (m MeanReverting) Simulate(T float64, steps, paths int, src rand.Source) (Paths, error) {
	return SimulateMeanReverting(m, T, steps, paths, src)
}

// ZeroCouponBond is the closed-form Vasicek price of a bond paying principal
// at T, given the short rate starts at X0.
func (m MeanReverting) ZeroCouponBond(principal, T float64) float64 {
	if m.Kappa == 0 {
		return principal * math.Exp(-m.X0*T+m.Sigma*m.Sigma*T*T*T/6)
	}
	k, s2 := m.Kappa, m.Sigma*m.Sigma
	b := (1 - math.Exp(-k*T)) / k
	a := (m.Theta-s2/(2*k*k))*(b-T) - s2*b*b/(4*k)
	return principal * math.Exp(a-b*m.X0)
}

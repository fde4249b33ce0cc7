package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/banachtech/quant-toolkit/mc"
	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/util"
	"go.uber.org/zap"
)

type Method int

const (
	Parametric Method = iota
	MonteCarlo
	Historical
)

func (m Method) String() string {
	switch m {
	case Parametric:
		return "parametric"
	case MonteCarlo:
		return "monte_carlo"
	case Historical:
		return "historical"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

func (m Method) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func ParseMethod(s string) (Method, error) {
	switch s {
	case "parametric", "":
		return Parametric, nil
	case "monte_carlo", "mc":
		return MonteCarlo, nil
	case "historical", "empirical":
		return Historical, nil
	}
	return 0, qerr.Validation("method", "unknown VaR method %q", s)
}

// Request carries the inputs of every method. Mu and Sigma are per-period
// and used by Parametric and MonteCarlo; Returns by Historical.
type Request struct {
	Method     Method
	Position   float64
	Confidence float64
	Horizon    float64
	Mu         float64
	Sigma      float64
	Returns    []float64
	Iterations int
	Seed       uint64
}

// Result is a VaR figure tagged with the method that produced it.
type Result struct {
	Method     Method  `json:"method"`
	Position   float64 `json:"position"`
	Confidence float64 `json:"confidence"`
	Horizon    float64 `json:"horizon"`
	Loss       float64 `json:"loss"`
	// Iterations is the number of paths simulated, after any engine cap. It
	// is zero for the closed-form and historical methods.
	Iterations int `json:"iterations,omitempty"`
}

// Calculator exposes every VaR method behind one call.
type Calculator struct {
	engine *mc.Engine
	log    *zap.Logger
}

func NewCalculator(engine *mc.Engine, log *zap.Logger) *Calculator {
	if engine == nil {
		engine = mc.NewEngine()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{engine: engine, log: log}
}

// Compute runs the requested method. Historical VaR is computed on
// single-period returns and scaled to the horizon by sqrt(H).
func (c *Calculator) Compute(ctx context.Context, req Request) (Result, error) {
	var (
		loss  float64
		iters int
		err   error
	)
	switch req.Method {
	case Parametric:
		loss, err = ParametricVaR(req.Position, req.Confidence, req.Mu, req.Sigma, req.Horizon)
	case MonteCarlo:
		var sim mc.VaRResult
		sim, err = c.engine.SimulateVaR(ctx, req.Position, req.Mu, req.Sigma, req.Confidence, req.Horizon, req.Iterations, util.NewSource(req.Seed))
		loss, iters = sim.Loss, sim.Iterations
	case Historical:
		if err = qerr.Positive("horizon", req.Horizon); err == nil {
			loss, err = EmpiricalVaR(req.Position, req.Returns, req.Confidence)
			loss *= math.Sqrt(req.Horizon)
		}
	default:
		err = qerr.Validation("method", "unknown VaR method %d", int(req.Method))
	}
	if err != nil {
		return Result{}, err
	}
	c.log.Debug("var computed",
		zap.Stringer("method", req.Method),
		zap.Float64("confidence", req.Confidence),
		zap.Float64("loss", loss))
	return Result{
		Method:     req.Method,
		Position:   req.Position,
		Confidence: req.Confidence,
		Horizon:    req.Horizon,
		Loss:       loss,
		Iterations: iters,
	}, nil
}

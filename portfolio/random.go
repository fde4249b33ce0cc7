package portfolio

import (
	"math"

	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/stats"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sample is a set of random portfolios and their statistics. Entries at the
// same index belong together.
type Sample struct {
	Weights []Weights `json:"weights"`
	Returns []float64 `json:"returns"`
	Risks   []float64 `json:"risks"`
}

func (s Sample) Len() int { return len(s.Weights) }

// GenerateRandomPortfolios draws count portfolios uniformly from the simplex
// by normalising independent Exp(1) draws.
func GenerateRandomPortfolios(m stats.Moments, count int, src rand.Source) (Sample, error) {
	if err := checkMoments(m); err != nil {
		return Sample{}, err
	}
	if err := qerr.Count("count", count, 1); err != nil {
		return Sample{}, err
	}
	if src == nil {
		return Sample{}, qerr.Validation("src", "a random source is required")
	}
	d := distuv.Exponential{Rate: 1, Src: src}
	n := m.Len()
	out := Sample{
		Weights: make([]Weights, count),
		Returns: make([]float64, count),
		Risks:   make([]float64, count),
	}
	for k := 0; k < count; k++ {
		w := make(Weights, n)
		sum := 0.0
		for i := range w {
			w[i] = d.Rand()
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
		s := evaluate(m, w, 0)
		out.Weights[k], out.Returns[k], out.Risks[k] = w, s.Return, s.Risk
	}
	return out, nil
}

// best returns the index of the sample portfolio that scores highest on the
// objective.
func (s Sample) best(obj Objective, rf float64) int {
	idx, score := 0, math.Inf(-1)
	for k := range s.Weights {
		var v float64
		switch obj {
		case MinVariance:
			v = -s.Risks[k]
		default:
			if s.Risks[k] == 0 {
				continue
			}
			v = (s.Returns[k] - rf) / s.Risks[k]
		}
		if v > score {
			idx, score = k, v
		}
	}
	return idx
}

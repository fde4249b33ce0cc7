package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/stats"
	"github.com/banachtech/quant-toolkit/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/exp/rand"
)

func threeAssets(t *testing.T) stats.Moments {
	m, err := stats.NewMoments([]string{"AAA", "BBB", "CCC"}, []float64{0.10, 0.14, 0.08}, [][]float64{
		{0.04, 0.006, 0.004},
		{0.006, 0.09, 0.01},
		{0.004, 0.01, 0.0225},
	})
	require.NoError(t, err)
	return m
}

func requireWeights(t *testing.T, w Weights, n int) {
	require.NoError(t, w.Validate(n))
	sum := 0.0
	for _, v := range w {
		require.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	require.InDelta(t, 1, sum, WeightTolerance)
}

func TestWeightsValidate(t *testing.T) {
	type testCases struct {
		name string
		w    Weights
		ok   bool
	}

	for _, test := range []testCases{
		{name: "VALID", w: Weights{0.2, 0.3, 0.5}, ok: true},
		{name: "WITHIN_TOLERANCE", w: Weights{0.2, 0.3, 0.5000005}, ok: true},
		{name: "SUM_TOO_LOW", w: Weights{0.2, 0.3, 0.4}},
		{name: "NEGATIVE", w: Weights{-0.2, 0.7, 0.5}},
		{name: "WRONG_LENGTH", w: Weights{0.5, 0.5}},
		{name: "NAN", w: Weights{math.NaN(), 0.5, 0.5}},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := test.w.Validate(3)
			if test.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, qerr.IsValidation(err))
		})
	}
}

func TestEvaluate(t *testing.T) {
	m := threeAssets(t)
	s, err := Evaluate(m, EqualWeights(3), 0.02)
	require.NoError(t, err)
	require.InDelta(t, 0.32/3, s.Return, 1e-12)
	v := (0.04 + 0.09 + 0.0225 + 2*(0.006+0.004+0.01)) / 9
	require.InDelta(t, math.Sqrt(v), s.Risk, 1e-12)
	require.InDelta(t, (0.32/3-0.02)/math.Sqrt(v), s.Sharpe, 1e-12)

	_, err = Evaluate(m, Weights{1, 0}, 0)
	require.True(t, qerr.IsValidation(err))
}

func TestGenerateRandomPortfolios(t *testing.T) {
	m := threeAssets(t)
	s, err := GenerateRandomPortfolios(m, 500, util.NewSource(1))
	require.NoError(t, err)
	require.Equal(t, 500, s.Len())
	for k, w := range s.Weights {
		requireWeights(t, w, 3)
		e, err := Evaluate(m, w, 0)
		require.NoError(t, err)
		require.InDelta(t, e.Return, s.Returns[k], 1e-12)
		require.InDelta(t, e.Risk, s.Risks[k], 1e-12)
	}

	again, err := GenerateRandomPortfolios(m, 500, util.NewSource(1))
	require.NoError(t, err)
	require.Equal(t, s, again)

	_, err = GenerateRandomPortfolios(m, 0, util.NewSource(1))
	require.True(t, qerr.IsValidation(err))
}

func TestMinVarianceDominatesRandomSample(t *testing.T) {
	m := threeAssets(t)
	res, err := Optimize(m, MinVariance, 0.02, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.False(t, res.Approximate)
	requireWeights(t, res.Weights, 3)

	sample, err := GenerateRandomPortfolios(m, 10_000, util.NewSource(42))
	require.NoError(t, err)
	for _, r := range sample.Risks {
		require.LessOrEqual(t, res.Risk, r)
	}
}

func TestMinVarianceIllConditioned(t *testing.T) {
	// one common factor plus small idiosyncratic noise; the optimum is
	// proportional to the inverse idiosyncratic variances
	const factor = 4e-4
	vols := []float64{0.9e-3, 1.0e-3, 1.1e-3, 1.2e-3, 1.3e-3}
	n := len(vols)
	cov := make([][]float64, n)
	for i := range cov {
		cov[i] = make([]float64, n)
		for j := range cov[i] {
			cov[i][j] = factor
		}
		cov[i][i] += vols[i] * vols[i]
	}
	m, err := stats.NewMoments(nil, []float64{0.05, 0.06, 0.07, 0.08, 0.09}, cov)
	require.NoError(t, err)

	res, err := Optimize(m, MinVariance, 0, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	require.False(t, res.Approximate)
	requireWeights(t, res.Weights, n)

	precision := 0.0
	for _, v := range vols {
		precision += 1 / (v * v)
	}
	require.InDelta(t, math.Sqrt(factor+1/precision), res.Risk, 1e-11)
	for i, v := range vols {
		require.InDelta(t, 1/(v*v)/precision, res.Weights[i], 1e-3)
	}

	sample, err := GenerateRandomPortfolios(m, 10_000, util.NewSource(44))
	require.NoError(t, err)
	for _, r := range sample.Risks {
		require.LessOrEqual(t, res.Risk, r)
	}
}

func TestMaxSharpeDominatesRandomSample(t *testing.T) {
	m := threeAssets(t)
	res, err := Optimize(m, MaxSharpe, 0.02, Options{})
	require.NoError(t, err)
	requireWeights(t, res.Weights, 3)

	sample, err := GenerateRandomPortfolios(m, 10_000, util.NewSource(43))
	require.NoError(t, err)
	for k := range sample.Weights {
		require.LessOrEqual(t, (sample.Returns[k]-0.02)/sample.Risks[k], res.Sharpe+1e-6)
	}
}

func TestMaxSharpeTangency(t *testing.T) {
	// uncorrelated assets: tangency weights are proportional to excess/variance
	m, err := stats.NewMoments(nil, []float64{0.1, 0.2}, [][]float64{{0.04, 0}, {0, 0.16}})
	require.NoError(t, err)
	res, err := Optimize(m, MaxSharpe, 0, Options{})
	require.NoError(t, err)
	require.InDelta(t, 2.0/3, res.Weights[0], 1e-4)
	require.InDelta(t, 1.0/3, res.Weights[1], 1e-4)
	require.InDelta(t, math.Sqrt(0.5), res.Sharpe, 1e-6)
}

func TestPerfectlyHedgedPair(t *testing.T) {
	m, err := stats.NewMoments(nil, []float64{0.05, 0.07}, [][]float64{{0.04, -0.04}, {-0.04, 0.04}})
	require.NoError(t, err)
	res, err := Optimize(m, MinVariance, 0, Options{})
	require.NoError(t, err)
	require.InDelta(t, 0.5, res.Weights[0], 1e-9)
	require.InDelta(t, 0.5, res.Weights[1], 1e-9)
	require.InDelta(t, 0, res.Risk, 1e-9)
}

func TestNonPSDCovariance(t *testing.T) {
	m, err := stats.NewMoments(nil, []float64{0.05, 0.07}, [][]float64{{0.04, 0.08}, {0.08, 0.04}})
	require.NoError(t, err)
	for _, obj := range []Objective{MinVariance, MaxSharpe} {
		_, err = Optimize(m, obj, 0, Options{})
		require.True(t, qerr.IsDomain(err), obj.String())
	}
	_, err = EfficientFrontier(m, 5, 0, Options{})
	require.True(t, qerr.IsDomain(err))
}

func TestFallbackToRandomSample(t *testing.T) {
	m := threeAssets(t)
	res, err := Optimize(m, MinVariance, 0, Options{MaxIterations: 1, Retries: -1, FallbackSamples: 2000, Source: rand.NewSource(3)})
	require.Error(t, err)
	require.True(t, qerr.IsOptimization(err))
	require.True(t, res.Approximate)
	requireWeights(t, res.Weights, 3)

	sample, err := GenerateRandomPortfolios(m, 2000, rand.NewSource(3))
	require.NoError(t, err)
	require.LessOrEqual(t, res.Risk, sample.Risks[sample.best(MinVariance, 0)])

	exact, err := Optimize(m, MinVariance, 0, Options{})
	require.NoError(t, err)
	require.LessOrEqual(t, exact.Risk, res.Risk)
}

func TestParseObjective(t *testing.T) {
	o, err := ParseObjective("min_variance")
	require.NoError(t, err)
	require.Equal(t, MinVariance, o)
	o, err = ParseObjective("")
	require.NoError(t, err)
	require.Equal(t, MaxSharpe, o)
	_, err = ParseObjective("max_return")
	require.True(t, qerr.IsValidation(err))
}

func TestEfficientFrontier(t *testing.T) {
	m := threeAssets(t)
	front, err := EfficientFrontier(m, 12, 0.02, Options{})
	require.NoError(t, err)
	require.Len(t, front, 12)

	minVar, err := Optimize(m, MinVariance, 0.02, Options{})
	require.NoError(t, err)
	require.InDelta(t, minVar.Risk, front[0].Risk, 1e-9)

	for i, p := range front {
		requireWeights(t, p.Weights, 3)
		if i > 0 {
			require.GreaterOrEqual(t, p.Risk, front[i-1].Risk)
			require.GreaterOrEqual(t, p.Return, front[i-1].Return-1e-9)
		}
	}
	last := front[len(front)-1]
	require.InDelta(t, 0.14, last.Return, 1e-6)

	_, err = EfficientFrontier(m, 1, 0, Options{})
	require.True(t, qerr.IsValidation(err))
}

func TestCAPM(t *testing.T) {
	r := rand.New(rand.NewSource(8))
	n := 60
	market := make([]float64, n)
	asset := make([]float64, n)
	dates := make([]time.Time, n)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range market {
		market[i] = 0.01 + 0.04*r.NormFloat64()
		asset[i] = 0.002 + 1.5*market[i]
		dates[i] = start.AddDate(0, i, 0)
	}

	beta, err := Beta(asset, market)
	require.NoError(t, err)
	require.InDelta(t, 1.5, beta, 1e-9)

	alpha, b, err := Regression(asset, market)
	require.NoError(t, err)
	require.InDelta(t, 0.002, alpha, 1e-9)
	require.InDelta(t, 1.5, b, 1e-9)

	require.InDelta(t, 0.092, ExpectedReturn(1.2, 0.02, 0.08), 1e-12)

	res, err := CAPM(
		stats.ReturnSeries{Asset: "ABC", Dates: dates, Values: asset},
		stats.ReturnSeries{Asset: "MKT", Dates: dates, Values: market},
		0.03, 12)
	require.NoError(t, err)
	require.InDelta(t, 1.5, res.Beta, 1e-9)
	mean := 0.0
	for _, v := range market {
		mean += v
	}
	mean = mean / float64(n) * 12
	require.InDelta(t, mean, res.MarketReturn, 1e-12)
	require.InDelta(t, 0.03+1.5*(mean-0.03), res.ExpectedReturn, 1e-9)
}

func TestBetaErrors(t *testing.T) {
	_, err := Beta([]float64{1, 2}, []float64{1, 2, 3})
	require.True(t, qerr.IsValidation(err))
	_, err = Beta([]float64{1}, []float64{1})
	require.True(t, qerr.IsValidation(err))
	_, err = Beta([]float64{1, 2, 3}, []float64{0.5, 0.5, 0.5})
	require.True(t, qerr.IsDomain(err))
}

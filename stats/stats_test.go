package stats

import (
	"math"
	"testing"
	"time"

	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/util"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func day(s string) time.Time {
	t, _ := time.Parse(util.Layout, s)
	return t
}

func series(t *testing.T, asset string, dates []string, px []float64) PriceSeries {
	d := make([]time.Time, len(dates))
	for i, s := range dates {
		d[i] = day(s)
	}
	ps, err := FromSlices(asset, d, px)
	require.NoError(t, err)
	return ps
}

func TestNewPriceSeries(t *testing.T) {
	testCases := []struct {
		name  string
		dates []string
		px    []float64
		ok    bool
	}{
		{name: "OK", dates: []string{"2024-01-02", "2024-01-03"}, px: []float64{100, 101}, ok: true},
		{name: "NON_POSITIVE", dates: []string{"2024-01-02", "2024-01-03"}, px: []float64{100, 0}},
		{name: "NOT_INCREASING", dates: []string{"2024-01-03", "2024-01-03"}, px: []float64{100, 101}},
		{name: "DECREASING", dates: []string{"2024-01-04", "2024-01-03"}, px: []float64{100, 101}},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			d := make([]time.Time, len(test.dates))
			for i, s := range test.dates {
				d[i] = day(s)
			}
			ps, err := FromSlices("AAPL", d, test.px)
			if test.ok {
				require.NoError(t, err)
				require.Equal(t, 2, ps.Len())
				last, ok := ps.Last()
				require.True(t, ok)
				require.Equal(t, 101.0, last.Price)
				return
			}
			require.True(t, qerr.IsValidation(err))
		})
	}
}

func TestPriceSeriesImmutable(t *testing.T) {
	points := []PricePoint{{Date: day("2024-01-02"), Price: 10}, {Date: day("2024-01-03"), Price: 11}}
	ps, err := NewPriceSeries("X", points)
	require.NoError(t, err)
	points[0].Price = 99
	got := ps.Points()
	require.Equal(t, 10.0, got[0].Price)
	got[1].Price = 99
	require.Equal(t, 11.0, ps.Points()[1].Price)
}

func TestComputeReturns(t *testing.T) {
	ps := series(t, "AAPL", []string{"2024-01-02", "2024-01-03", "2024-01-04"}, []float64{100, 110, 99})

	simple, err := ComputeReturns(ps, Simple)
	require.NoError(t, err)
	require.Equal(t, 2, simple.Len())
	require.InDelta(t, 0.10, simple.Values[0], 1e-12)
	require.InDelta(t, -0.10, simple.Values[1], 1e-12)
	require.Equal(t, day("2024-01-03"), simple.Dates[0])

	logr, err := ComputeReturns(ps, Log)
	require.NoError(t, err)
	require.InDelta(t, math.Log(1.1), logr.Values[0], 1e-12)
	require.InDelta(t, math.Log(0.99), logr.Values[0]+logr.Values[1], 1e-12)

	short := series(t, "AAPL", []string{"2024-01-02"}, []float64{100})
	_, err = ComputeReturns(short, Log)
	require.True(t, qerr.IsValidation(err))

	_, err = ComputeReturns(ps, ReturnMode(7))
	require.True(t, qerr.IsValidation(err))
}

func TestParseReturnMode(t *testing.T) {
	m, err := ParseReturnMode("simple")
	require.NoError(t, err)
	require.Equal(t, Simple, m)
	m, err = ParseReturnMode("")
	require.NoError(t, err)
	require.Equal(t, Log, m)
	_, err = ParseReturnMode("geometric")
	require.Error(t, err)
}

func TestEstimateMomentsInnerJoin(t *testing.T) {
	a := ReturnSeries{Asset: "A", Dates: []time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04"), day("2024-01-05")}, Values: []float64{0.01, 0.02, -0.01, 0.5}}
	b := ReturnSeries{Asset: "B", Dates: []time.Time{day("2024-01-03"), day("2024-01-04"), day("2024-01-05"), day("2024-01-08")}, Values: []float64{0.03, 0.01, 0.02, 0.7}}

	dates, data, err := Align(a, b)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	r, c := data.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 2, c)

	m, err := EstimateMoments(a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, m.Assets)
	// overlapping A values: 0.02, -0.01, 0.5
	require.InDelta(t, (0.02-0.01+0.5)/3, m.Mean[0], 1e-12)
	require.InDelta(t, 0.02, m.Mean[1], 1e-12)

	// unbiased variance of B over {0.03, 0.01, 0.02}
	require.InDelta(t, 1e-4, m.Cov.At(1, 1), 1e-15)
	require.Equal(t, m.Cov.At(0, 1), m.Cov.At(1, 0))
}

func TestEstimateMomentsErrors(t *testing.T) {
	a := ReturnSeries{Asset: "A", Dates: []time.Time{day("2024-01-02"), day("2024-01-03")}, Values: []float64{0.01, 0.02}}
	b := ReturnSeries{Asset: "B", Dates: []time.Time{day("2024-01-03"), day("2024-01-04")}, Values: []float64{0.01, 0.02}}
	flat := ReturnSeries{Asset: "FLAT", Dates: a.Dates, Values: []float64{0.01, 0.01}}

	_, err := EstimateMoments(a, b)
	require.True(t, qerr.IsValidation(err))

	_, err = EstimateMoments(a, flat)
	require.True(t, qerr.IsValidation(err))
	require.Contains(t, err.Error(), "FLAT")

	_, err = EstimateMoments()
	require.True(t, qerr.IsValidation(err))

	three := ReturnSeries{Asset: "A", Dates: []time.Time{day("2024-01-02"), day("2024-01-03"), day("2024-01-04")}, Values: []float64{0.01, 0.02, -0.01}}
	for _, v := range []float64{0.1, 0.3, -0.07, 1e-3} {
		constant := ReturnSeries{Asset: "CONST", Dates: three.Dates, Values: []float64{v, v, v}}
		_, err = EstimateMoments(three, constant)
		require.True(t, qerr.IsValidation(err), "%v", v)
		require.Contains(t, err.Error(), "CONST")
	}
}

func TestCorrelationClamped(t *testing.T) {
	m, err := NewMoments([]string{"X", "Y"}, []float64{0, 0}, [][]float64{{1, 1.0000000001}, {1.0000000001, 1}})
	require.NoError(t, err)
	corr := m.Correlation()
	require.Equal(t, 1.0, corr.At(0, 1))
	require.Equal(t, 1.0, corr.At(0, 0))
}

func TestNewMomentsValidation(t *testing.T) {
	_, err := NewMoments(nil, []float64{0, 0}, [][]float64{{1, 0.5}, {0.4, 1}})
	require.True(t, qerr.IsValidation(err))
	_, err = NewMoments(nil, []float64{0, 0}, [][]float64{{1, 0}})
	require.True(t, qerr.IsValidation(err))
	_, err = NewMoments(nil, []float64{0}, [][]float64{{-1}})
	require.True(t, qerr.IsValidation(err))
	m, err := NewMoments(nil, []float64{0.1}, [][]float64{{0.04}})
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, m.Assets)
	require.InDelta(t, 0.2, m.StdDev()[0], 1e-12)
}

func TestGeneratedSeriesMoments(t *testing.T) {
	r := rand.New(util.NewSource(11))
	start := day("2024-01-02")
	var rs []ReturnSeries
	for i := 0; i < 3; i++ {
		dates, px := util.RandomPrices(r, start, 500, 100, 0.0004, 0.015)
		ps, err := FromSlices(util.RandomTicker(r), dates, px)
		require.NoError(t, err)
		ret, err := ComputeReturns(ps, Log)
		require.NoError(t, err)
		rs = append(rs, ret)
	}
	m, err := EstimateMoments(rs...)
	require.NoError(t, err)
	for i, sd := range m.StdDev() {
		require.InDelta(t, 0.015, sd, 0.002, "asset %d", i)
	}
	ann := m.Annualize(TradingDaysPerYear)
	require.InDelta(t, m.Mean[0]*252, ann.Mean[0], 1e-12)
	require.InDelta(t, m.Cov.At(1, 2)*252, ann.Cov.At(1, 2), 1e-12)
	require.InDelta(t, 0, m.Correlation().At(0, 1), 0.15)
}

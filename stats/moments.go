package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/banachtech/quant-toolkit/qerr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Moments is the mean vector and covariance matrix of a set of assets, in
// Assets order.
type Moments struct {
	Assets []string
	Mean   []float64
	Cov    *mat.SymDense
}

// NewMoments builds a Moments from caller-supplied estimates. cov must be
// square, symmetric and have a non-negative diagonal.
func NewMoments(assets []string, mean []float64, cov [][]float64) (Moments, error) {
	n := len(mean)
	if err := qerr.Count("assets", n, 1); err != nil {
		return Moments{}, err
	}
	if assets == nil {
		assets = make([]string, n)
		for i := range assets {
			assets[i] = string(rune('A' + i%26))
			if i >= 26 {
				assets[i] += fmt.Sprint(i / 26)
			}
		}
	}
	if len(assets) != n {
		return Moments{}, qerr.Validation("assets", "%d names for %d means", len(assets), n)
	}
	if len(cov) != n {
		return Moments{}, qerr.Validation("cov", "%d rows for %d assets", len(cov), n)
	}
	data := make([]float64, 0, n*n)
	for i, row := range cov {
		if len(row) != n {
			return Moments{}, qerr.Validation("cov", "row %d has %d columns, want %d", i, len(row), n)
		}
		if row[i] < 0 {
			return Moments{}, qerr.Validation("cov", "negative variance %v for %s", row[i], assets[i])
		}
		for j := 0; j < i; j++ {
			if math.Abs(row[j]-cov[j][i]) > 1e-12*(1+math.Abs(row[j])) {
				return Moments{}, qerr.Validation("cov", "not symmetric at (%d,%d)", i, j)
			}
		}
		data = append(data, row...)
	}
	m := make([]float64, n)
	copy(m, mean)
	a := make([]string, n)
	copy(a, assets)
	return Moments{Assets: a, Mean: m, Cov: mat.NewSymDense(n, data)}, nil
}

func (m Moments) Len() int { return len(m.Mean) }

// StdDev returns the per-asset standard deviations.
func (m Moments) StdDev() []float64 {
	out := make([]float64, m.Len())
	for i := range out {
		out[i] = math.Sqrt(m.Cov.At(i, i))
	}
	return out
}

// Correlation returns the correlation matrix, entries clamped to [-1, 1].
func (m Moments) Correlation() *mat.SymDense {
	n := m.Len()
	sd := m.StdDev()
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				corr.SetSym(i, j, 1)
				continue
			}
			c := 0.0
			if sd[i] > 0 && sd[j] > 0 {
				c = m.Cov.At(i, j) / (sd[i] * sd[j])
			}
			corr.SetSym(i, j, math.Max(-1, math.Min(1, c)))
		}
	}
	return corr
}

// Annualize scales per-period moments by periods per year.
func (m Moments) Annualize(periods float64) Moments {
	n := m.Len()
	mean := make([]float64, n)
	for i, v := range m.Mean {
		mean[i] = v * periods
	}
	cov := mat.NewSymDense(n, nil)
	cov.ScaleSym(periods, m.Cov)
	assets := make([]string, n)
	copy(assets, m.Assets)
	return Moments{Assets: assets, Mean: mean, Cov: cov}
}

// Align inner-joins return series on their dates. Rows of the returned
// matrix are the common dates in ascending order, columns follow returns.
func Align(returns ...ReturnSeries) ([]time.Time, *mat.Dense, error) {
	if err := qerr.Count("return series", len(returns), 1); err != nil {
		return nil, nil, err
	}
	count := map[int64]int{}
	lookup := make([]map[int64]float64, len(returns))
	for k, r := range returns {
		if len(r.Dates) != len(r.Values) {
			return nil, nil, qerr.Validation(r.Asset, "%d dates for %d returns", len(r.Dates), len(r.Values))
		}
		lookup[k] = make(map[int64]float64, len(r.Dates))
		for i, d := range r.Dates {
			key := d.UnixNano()
			if _, dup := lookup[k][key]; dup {
				return nil, nil, qerr.Validation(r.Asset, "duplicate date %s", d.Format("2006-01-02"))
			}
			lookup[k][key] = r.Values[i]
			count[key]++
		}
	}
	var keys []int64
	for key, c := range count {
		if c == len(returns) {
			keys = append(keys, key)
		}
	}
	if err := qerr.Count("overlapping dates", len(keys), 2); err != nil {
		return nil, nil, err
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	dates := make([]time.Time, len(keys))
	data := mat.NewDense(len(keys), len(returns), nil)
	for i, key := range keys {
		dates[i] = time.Unix(0, key).UTC()
		for k := range returns {
			data.Set(i, k, lookup[k][key])
		}
	}
	return dates, data, nil
}

// zeroVariance is the variance, relative to max(1, mean^2), below which a
// series counts as constant. Rounding in the mean leaves constant series with
// variances around 1e-34 rather than exactly zero.
const zeroVariance = 1e-14

// EstimateMoments aligns the series on common dates and returns the sample
// mean and unbiased covariance. Zero-variance assets are rejected since they
// make the covariance matrix singular.
func EstimateMoments(returns ...ReturnSeries) (Moments, error) {
	_, data, err := Align(returns...)
	if err != nil {
		return Moments{}, err
	}
	_, n := data.Dims()
	mean := make([]float64, n)
	assets := make([]string, n)
	for k := 0; k < n; k++ {
		col := mat.Col(nil, k, data)
		mean[k] = stat.Mean(col, nil)
		assets[k] = returns[k].Asset
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	for k := 0; k < n; k++ {
		if cov.At(k, k) <= zeroVariance*math.Max(1, mean[k]*mean[k]) {
			return Moments{}, qerr.Validation(assets[k], "zero variance over the overlapping dates")
		}
	}
	return Moments{Assets: assets, Mean: mean, Cov: &cov}, nil
}

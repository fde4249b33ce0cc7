package portfolio

import (
	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func checkPair(asset, market []float64) error {
	if len(asset) != len(market) {
		return qerr.Validation("returns", "%d asset returns for %d market returns", len(asset), len(market))
	}
	if err := qerr.Count("returns", len(market), 2); err != nil {
		return err
	}
	if stat.Variance(market, nil) == 0 {
		return qerr.Domain("market", "market returns have zero variance")
	}
	return nil
}

// Beta is Cov(asset, market) / Var(market) over paired observations.
func Beta(asset, market []float64) (float64, error) {
	if err := checkPair(asset, market); err != nil {
		return 0, err
	}
	return stat.Covariance(asset, market, nil) / stat.Variance(market, nil), nil
}

// ExpectedReturn is the CAPM expected return rf + beta (marketReturn - rf).
func ExpectedReturn(beta, rf, marketReturn float64) float64 {
	return rf + beta*(marketReturn-rf)
}

// Regression fits asset = alpha + beta market by least squares.
func Regression(asset, market []float64) (alpha, beta float64, err error) {
	if err := checkPair(asset, market); err != nil {
		return 0, 0, err
	}
	alpha, beta = stat.LinearRegression(market, asset, nil, false)
	return alpha, beta, nil
}

// CAPMResult summarises an asset against its market.
type CAPMResult struct {
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
	MarketReturn   float64 `json:"market_return"`
	ExpectedReturn float64 `json:"expected_return"`
}

// CAPM aligns two return series on their dates, regresses the asset on the
// market and projects the expected return using the mean market return
// scaled by periods per year. rf is annual.
func CAPM(asset, market stats.ReturnSeries, rf, periods float64) (CAPMResult, error) {
	if err := qerr.Positive("periods", periods); err != nil {
		return CAPMResult{}, err
	}
	_, x, err := stats.Align(asset, market)
	if err != nil {
		return CAPMResult{}, err
	}
	a := mat.Col(nil, 0, x)
	mk := mat.Col(nil, 1, x)
	alpha, beta, err := Regression(a, mk)
	if err != nil {
		return CAPMResult{}, err
	}
	mr := stat.Mean(mk, nil) * periods
	return CAPMResult{
		Alpha:          alpha,
		Beta:           beta,
		MarketReturn:   mr,
		ExpectedReturn: ExpectedReturn(beta, rf, mr),
	}, nil
}

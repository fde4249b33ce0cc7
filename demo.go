package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banachtech/quant-toolkit/config"
	"github.com/banachtech/quant-toolkit/mc"
	"github.com/banachtech/quant-toolkit/portfolio"
	"github.com/banachtech/quant-toolkit/pricing"
	"github.com/banachtech/quant-toolkit/process"
	"github.com/banachtech/quant-toolkit/risk"
	"github.com/banachtech/quant-toolkit/stats"
	"github.com/banachtech/quant-toolkit/util"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const demoIterations = 1_000_000

// progress bar initialization
func progressBar(length int, description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(
		length,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetVisibility(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return bar
}

// simulateMarket generates one year of correlated daily closes for three
// randomly named tickers on the business-day calendar.
func simulateMarket(seed uint64) ([]stats.PriceSeries, error) {
	r := rand.New(util.NewSource(seed))
	tickers := []string{util.RandomTicker(r), util.RandomTicker(r), util.RandomTicker(r)}
	hols, err := util.Hols(util.NYSE)
	if err != nil {
		return nil, err
	}
	steps := stats.TradingDaysPerYear
	dates := util.StepDates(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), steps, hols)

	basket := process.Basket{
		Tickers: tickers,
		Assets: []process.GBM{
			{S0: 100, Mu: 0.10, Sigma: 0.20},
			{S0: 50, Mu: 0.14, Sigma: 0.30},
			{S0: 75, Mu: 0.06, Sigma: 0.15},
		},
		Corr: mat.NewSymDense(3, []float64{
			1, 0.3, 0.2,
			0.3, 1, 0.4,
			0.2, 0.4, 1,
		}),
	}
	paths, err := process.SimulateBasket(basket, 1, steps, 1, util.NewSource(r.Uint64()))
	if err != nil {
		return nil, err
	}
	out := make([]stats.PriceSeries, len(tickers))
	for i, t := range tickers {
		out[i], err = stats.FromSlices(t, dates, paths[t][0])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func runDemo(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	prices, err := simulateMarket(cfg.Engine.Seed)
	if err != nil {
		return err
	}
	returns := make([]stats.ReturnSeries, len(prices))
	for i, p := range prices {
		if returns[i], err = stats.ComputeReturns(p, stats.Log); err != nil {
			return err
		}
	}
	daily, err := stats.EstimateMoments(returns...)
	if err != nil {
		return err
	}
	annual := daily.Annualize(stats.TradingDaysPerYear)
	fmt.Printf("assets: %s\n", strings.Join(annual.Assets, ", "))

	const rf = 0.03
	opts := portfolio.Options{Source: util.NewSource(cfg.Engine.Seed), Logger: log.Named("portfolio")}
	for _, obj := range []portfolio.Objective{portfolio.MaxSharpe, portfolio.MinVariance} {
		res, err := portfolio.Optimize(annual, obj, rf, opts)
		if err != nil && !res.Approximate {
			return err
		}
		fmt.Printf("%-12s weights %.4f return %.4f risk %.4f sharpe %.3f approximate %v\n",
			obj, []float64(res.Weights), res.Return, res.Risk, res.Sharpe, res.Approximate)
	}

	// CAPM of the first asset against an equal-weighted index
	dates, aligned, err := stats.Align(returns...)
	if err != nil {
		return err
	}
	rows, cols := aligned.Dims()
	index := stats.ReturnSeries{Asset: "INDEX", Mode: stats.Log, Dates: dates, Values: make([]float64, rows)}
	for i := 0; i < rows; i++ {
		index.Values[i] = mat.Sum(aligned.RowView(i)) / float64(cols)
	}
	capm, err := portfolio.CAPM(returns[0], index, rf, stats.TradingDaysPerYear)
	if err != nil {
		return err
	}
	fmt.Printf("CAPM %s: alpha %.5f beta %.3f expected return %.4f\n", returns[0].Asset, capm.Alpha, capm.Beta, capm.ExpectedReturn)

	last, _ := prices[0].Last()
	contract := pricing.Contract{
		Spot:       last.Price,
		Strike:     math.Round(last.Price),
		Maturity:   0.5,
		Rate:       rf,
		Volatility: annual.StdDev()[0],
	}
	analytic, err := pricing.CallPrice(contract)
	if err != nil {
		return err
	}
	bar := progressBar(demoIterations, "pricing call")
	engine := mc.NewEngine(
		mc.WithWorkers(cfg.Engine.Workers),
		mc.WithChunkSize(cfg.Engine.ChunkSize),
		mc.WithMaxIterations(cfg.Engine.MaxIterations),
		mc.WithLogger(log.Named("mc")),
		mc.WithProgress(func(done int) { _ = bar.Set(done) }),
	)
	est, err := engine.PriceOption(ctx, contract, demoIterations, util.NewSource(cfg.Engine.Seed))
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Printf("call %s K=%.0f: analytic %.4f monte carlo %.4f (se %.4f, n=%d)\n",
		prices[0].Asset(), contract.Strike, analytic, est.Price, est.StdError, est.Iterations)

	engine.Progress = nil
	calc := risk.NewCalculator(engine, log.Named("risk"))
	equal := portfolio.EqualWeights(daily.Len())
	pv, err := risk.PortfolioParametricVaR(1_000_000, equal, daily, 0.99, 10)
	if err != nil {
		return err
	}
	fmt.Printf("10-day 99%% VaR of 1,000,000 equal weighted: %.2f\n", pv)
	for _, method := range []risk.Method{risk.Parametric, risk.MonteCarlo, risk.Historical} {
		res, err := calc.Compute(ctx, risk.Request{
			Method:     method,
			Position:   1_000_000,
			Confidence: 0.99,
			Horizon:    1,
			Mu:         daily.Mean[0],
			Sigma:      daily.StdDev()[0],
			Returns:    returns[0].Values,
			Iterations: 200_000,
			Seed:       cfg.Engine.Seed,
		})
		if err != nil {
			return err
		}
		fmt.Printf("1-day 99%% VaR %s (%s): %.2f\n", prices[0].Asset(), method, res.Loss)
	}

	short := process.MeanReverting{X0: 0.03, Kappa: 0.3, Theta: 0.045, Sigma: 0.01}
	bond, err := engine.PriceVasicekBond(ctx, 1000, short, 5, 250, 20_000, util.NewSource(cfg.Engine.Seed))
	if err != nil {
		return err
	}
	fmt.Printf("5y Vasicek zero: closed form %.2f monte carlo %.2f\n", short.ZeroCouponBond(1000, 5), bond.Price)
	return nil
}

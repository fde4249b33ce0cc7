package api

import (
	"errors"
	"net/http"

	"github.com/banachtech/quant-toolkit/portfolio"
	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/risk"
	"github.com/banachtech/quant-toolkit/stats"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type varRequest struct {
	Method     string    `json:"method"`
	Position   float64   `json:"position" binding:"required"`
	Confidence float64   `json:"confidence" binding:"required"`
	Horizon    float64   `json:"horizon"`
	Mu         float64   `json:"mu"`
	Sigma      float64   `json:"sigma"`
	Returns    []float64 `json:"returns"`
	Iterations int       `json:"iterations"`
	Seed       *uint64   `json:"seed"`
}

type varResponse struct {
	Method     string          `json:"method"`
	Position   decimal.Decimal `json:"position"`
	Confidence float64         `json:"confidence"`
	Horizon    float64         `json:"horizon"`
	Loss       decimal.Decimal `json:"loss"`
	Iterations int             `json:"iterations,omitempty"`
}

func (server *Server) valueAtRisk(c *gin.Context) {
	var req varRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	method, err := risk.ParseMethod(req.Method)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if req.Horizon == 0 {
		req.Horizon = 1
	}
	if req.Iterations == 0 {
		req.Iterations = defaultIterations
	}
	seed := server.cfg.Engine.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	res, err := server.calc.Compute(c.Request.Context(), risk.Request{
		Method:     method,
		Position:   req.Position,
		Confidence: req.Confidence,
		Horizon:    req.Horizon,
		Mu:         req.Mu,
		Sigma:      req.Sigma,
		Returns:    req.Returns,
		Iterations: req.Iterations,
		Seed:       seed,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	position, err := money("position", res.Position)
	if err != nil {
		abortWithError(c, err)
		return
	}
	loss, err := money("loss", res.Loss)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if method == risk.MonteCarlo {
		server.metrics.iterations.WithLabelValues("simulate_var").Add(float64(res.Iterations))
	}
	c.JSON(http.StatusOK, varResponse{
		Method:     res.Method.String(),
		Position:   position,
		Confidence: res.Confidence,
		Horizon:    res.Horizon,
		Loss:       loss,
		Iterations: res.Iterations,
	})
}

type portfolioRequest struct {
	Assets         []string    `json:"assets"`
	Mean           []float64   `json:"mean" binding:"required"`
	Cov            [][]float64 `json:"cov" binding:"required"`
	Objective      string      `json:"objective"`
	RiskFreeRate   float64     `json:"risk_free_rate"`
	FrontierPoints int         `json:"frontier_points"`
	Seed           *uint64     `json:"seed"`
}

type portfolioResponse struct {
	Objective   string             `json:"objective"`
	Weights     map[string]float64 `json:"weights"`
	Return      float64            `json:"return"`
	Risk        float64            `json:"risk"`
	Sharpe      float64            `json:"sharpe"`
	Approximate bool               `json:"approximate"`
	Warning     string             `json:"warning,omitempty"`
	Frontier    []portfolio.Result `json:"frontier,omitempty"`
}

func (server *Server) optimizePortfolio(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	obj, err := portfolio.ParseObjective(req.Objective)
	if err != nil {
		abortWithError(c, err)
		return
	}
	m, err := stats.NewMoments(req.Assets, req.Mean, req.Cov)
	if err != nil {
		abortWithError(c, err)
		return
	}
	opts := portfolio.Options{Source: server.source(req.Seed), Logger: server.logger.Named("portfolio")}

	res, err := portfolio.Optimize(m, obj, req.RiskFreeRate, opts)
	resp := portfolioResponse{Objective: obj.String()}
	if err != nil {
		var opt *qerr.OptimizationError
		if !errors.As(err, &opt) {
			abortWithError(c, err)
			return
		}
		server.logger.Warn("approximate portfolio returned", zap.Error(err))
		resp.Warning = err.Error()
	}
	resp.Weights = make(map[string]float64, len(m.Assets))
	for i, a := range m.Assets {
		resp.Weights[a] = res.Weights[i]
	}
	resp.Return, resp.Risk, resp.Sharpe, resp.Approximate = res.Return, res.Risk, res.Sharpe, res.Approximate

	if req.FrontierPoints > 0 {
		front, err := portfolio.EfficientFrontier(m, req.FrontierPoints, req.RiskFreeRate, opts)
		if err != nil {
			abortWithError(c, err)
			return
		}
		resp.Frontier = front
	}
	c.JSON(http.StatusOK, resp)
}

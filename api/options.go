package api

import (
	"math"
	"net/http"

	"github.com/banachtech/quant-toolkit/pricing"
	"github.com/banachtech/quant-toolkit/qerr"
	"github.com/banachtech/quant-toolkit/util"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/rand"
)

// money rounds a currency amount to cents for the wire. Infinite and NaN
// amounts have no decimal form and are reported as a DomainError.
func money(name string, x float64) (decimal.Decimal, error) {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return decimal.Decimal{}, qerr.Domain(name, "%v is not a finite amount", x)
	}
	return decimal.NewFromFloat(x).Round(2), nil
}

type optionRequest struct {
	Spot       float64 `json:"spot" binding:"required"`
	Strike     float64 `json:"strike" binding:"required"`
	Maturity   float64 `json:"maturity"`
	Rate       float64 `json:"rate"`
	Volatility float64 `json:"volatility"`
	Style      string  `json:"style"`
	// Method is "analytic" (default) or "monte_carlo".
	Method     string  `json:"method"`
	Iterations int     `json:"iterations"`
	Seed       *uint64 `json:"seed"`
}

func (r optionRequest) contract() (pricing.Contract, error) {
	style := pricing.Call
	if r.Style != "" {
		s, err := pricing.ParseStyle(r.Style)
		if err != nil {
			return pricing.Contract{}, err
		}
		style = s
	}
	return pricing.Contract{
		Spot:       r.Spot,
		Strike:     r.Strike,
		Maturity:   r.Maturity,
		Rate:       r.Rate,
		Volatility: r.Volatility,
		Style:      style,
	}, nil
}

// source returns the request's random source, falling back to the
// configured seed so repeated requests agree.
func (server *Server) source(seed *uint64) rand.Source {
	if seed != nil {
		return util.NewSource(*seed)
	}
	return util.NewSource(server.cfg.Engine.Seed)
}

const defaultIterations = 100_000

type optionPriceResponse struct {
	Contract   pricing.Contract `json:"contract"`
	Method     string           `json:"method"`
	Price      decimal.Decimal  `json:"price"`
	StdError   *float64         `json:"std_error,omitempty"`
	Iterations int              `json:"iterations,omitempty"`
}

func (server *Server) optionPrice(c *gin.Context) {
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	contract, err := req.contract()
	if err != nil {
		abortWithError(c, err)
		return
	}

	switch req.Method {
	case "", "analytic":
		p, err := pricing.Price(contract)
		if err != nil {
			abortWithError(c, err)
			return
		}
		price, err := money("price", p)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, optionPriceResponse{Contract: contract, Method: "analytic", Price: price})
	case "monte_carlo":
		n := req.Iterations
		if n == 0 {
			n = defaultIterations
		}
		est, err := server.engine.PriceOption(c.Request.Context(), contract, n, server.source(req.Seed))
		if err != nil {
			abortWithError(c, err)
			return
		}
		server.metrics.iterations.WithLabelValues("price_option").Add(float64(est.Iterations))
		price, err := money("price", est.Price)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, optionPriceResponse{
			Contract:   contract,
			Method:     "monte_carlo",
			Price:      price,
			StdError:   &est.StdError,
			Iterations: est.Iterations,
		})
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "method must be analytic or monte_carlo"})
	}
}

func (server *Server) optionGreeks(c *gin.Context) {
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	contract, err := req.contract()
	if err != nil {
		abortWithError(c, err)
		return
	}
	g, err := pricing.ComputeGreeks(contract)
	if err != nil {
		abortWithError(c, err)
		return
	}
	p, err := pricing.Price(contract)
	if err != nil {
		abortWithError(c, err)
		return
	}
	price, err := money("price", p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract": contract, "price": price, "greeks": g})
}

type impliedVolRequest struct {
	optionRequest
	MarketPrice float64 `json:"market_price" binding:"required"`
}

func (server *Server) impliedVolatility(c *gin.Context) {
	var req impliedVolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	contract, err := req.contract()
	if err != nil {
		abortWithError(c, err)
		return
	}
	vol, err := pricing.ImpliedVolatility(contract, req.MarketPrice)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"implied_volatility": vol})
}

type bondRequest struct {
	pricing.BondSchedule
	Continuous bool `json:"continuous"`
}

func (server *Server) bondPrice(c *gin.Context) {
	var req bondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	if req.Frequency == 0 {
		req.Frequency = 1
	}
	price := req.Price
	if req.Continuous {
		price = req.ContinuousPrice
	}
	p, err := price()
	if err != nil {
		abortWithError(c, err)
		return
	}
	flows, err := req.CashFlows()
	if err != nil {
		abortWithError(c, err)
		return
	}
	amount, err := money("price", p)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bond": req.BondSchedule, "price": amount, "cash_flows": flows})
}

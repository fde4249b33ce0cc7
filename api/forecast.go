package api

import (
	"net/http"

	"github.com/banachtech/quant-toolkit/mc"
	"github.com/banachtech/quant-toolkit/process"
	"github.com/gin-gonic/gin"
)

type forecastRequest struct {
	Process    process.Config `json:"process"`
	Maturity   float64        `json:"maturity" binding:"required"`
	Steps      int            `json:"steps" binding:"required"`
	Iterations int            `json:"iterations"`
	Band       mc.Band        `json:"band"`
	Seed       *uint64        `json:"seed"`
}

func (server *Server) forecast(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	m, err := req.Process.Model()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if req.Iterations == 0 {
		req.Iterations = 10_000
	}
	f, err := server.engine.ForecastPrice(c.Request.Context(), m, req.Maturity, req.Steps, req.Iterations, req.Band, server.source(req.Seed))
	if err != nil {
		abortWithError(c, err)
		return
	}
	server.metrics.iterations.WithLabelValues("forecast_price").Add(float64(len(f.Paths)))
	c.JSON(http.StatusOK, gin.H{"process": req.Process, "summary": f.Summary})
}

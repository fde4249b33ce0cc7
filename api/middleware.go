package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"
)

const (
	authorizationHeaderKey  = "authorization"
	authorizationTypeBearer = "bearer"
	requestIDHeaderKey      = "X-Request-ID"
	apiKeyPrefixLength      = 8
)

// authentication checks a bearer API key of the form <8-char prefix>.<secret>
// against the configured bcrypt hash. No hash configured means no check.
func (server *Server) authentication(c *gin.Context) {
	hash := server.cfg.Auth.APIKeyHash
	if hash == "" {
		c.Next()
		return
	}
	authorizationHeader := c.GetHeader(authorizationHeaderKey)

	if len(authorizationHeader) == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("authorization header is not provided")))
		return
	}

	fields := strings.Fields(authorizationHeader)
	if len(fields) < 2 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("invalid authorization header format")))
		return
	}

	authorizationType := strings.ToLower(fields[0])
	if authorizationType != authorizationTypeBearer {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(fmt.Errorf("unsupported authorization type: %s", authorizationType)))
		return
	}

	apiKey := fields[1]
	prefix := strings.Split(apiKey, ".")[0]
	if len(prefix) != apiKeyPrefixLength {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("please input a valid API Key")))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)); err != nil {
		server.metrics.authFailures.Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("please input a valid API Key")))
		return
	}

	c.Next()
}

// requestID propagates the caller's X-Request-ID or assigns a new one.
func (server *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeaderKey)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set("request_id", id)
	c.Header(requestIDHeaderKey, id)
	c.Next()
}

type metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	authFailures prometheus.Counter
	iterations   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quant_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "quant_auth_failures_total",
			Help: "Rejected API keys.",
		}),
		iterations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_mc_iterations_total",
			Help: "Monte Carlo iterations simulated, by run.",
		}, []string{"run"}),
	}
}

func (server *Server) instrument(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	server.metrics.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
	server.metrics.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

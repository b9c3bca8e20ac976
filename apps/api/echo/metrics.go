package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apsconnect_http_requests_total",
			Help: "Number of HTTP requests processed, by method, route and status code.",
		},
		[]string{"method", "route", "code"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apsconnect_http_request_duration_seconds",
			Help:    "HTTP request latencies, by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// errorStatus maps a handler error to the status code the error handler
// will respond with. Handlers wrap their errors, so unwrap first.
func errorStatus(err error) int {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		return cause.Code
	case *core.ValidationError, validator.ValidationErrors:
		return http.StatusBadRequest
	}
	switch errors.Cause(err) {
	case core.ErrPermissionDenied:
		return http.StatusForbidden
	case account.ErrNotFound:
		return http.StatusNotFound
	case account.ErrStatusConflict, account.ErrInvalidTransition:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func newMetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			route := ctx.Path() // pattern, not raw URL; keeps cardinality bounded
			if route == "" || route == "/metrics" {
				return err
			}
			method := ctx.Request().Method
			code := ctx.Response().Status
			if err != nil {
				code = errorStatus(err)
			}

			requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
			requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

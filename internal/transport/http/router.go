package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certificatehandler "etatcivil/internal/certificate/handler"
	declarationhandler "etatcivil/internal/declaration/handler"
	notificationhandler "etatcivil/internal/notification/handler"
	"etatcivil/internal/platform/health"
	"etatcivil/pkg/platform/middleware/auth"
	"etatcivil/pkg/platform/middleware/request"
)

// Deps are the pieces the router mounts. Nil handlers are skipped so tests
// can build a partial router.
type Deps struct {
	Declarations  *declarationhandler.Handler
	Certificates  *certificatehandler.Handler
	Notifications *notificationhandler.Handler
	Health        *health.Handler

	Tokens         auth.JWTValidator
	CallbackSecret string

	Gatherer       prometheus.Gatherer
	LatencyMetrics *request.Metrics
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter wires all public endpoints with middleware. Health, metrics and
// the payment processor callback sit outside bearer authentication.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(request.Logger(logger))
	r.Use(request.Timeout(timeout))
	r.Use(request.LatencyMiddleware(d.LatencyMetrics, routePattern))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Certificates != nil && d.CallbackSecret != "" {
		d.Certificates.RegisterPaymentCallback(r, d.CallbackSecret)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Tokens, logger))
		if d.Declarations != nil {
			d.Declarations.Register(r)
		}
		if d.Certificates != nil {
			d.Certificates.Register(r)
		}
		if d.Notifications != nil {
			d.Notifications.Register(r)
		}
	})

	return r
}

// routePattern labels latency by chi route template instead of raw path so
// IDs do not explode metric cardinality.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}

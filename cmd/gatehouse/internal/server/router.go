package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/config"
	gatemw "github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/middleware"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/ratelimit"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/iam"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/telemetry"
)

// HandlerFunc serves a route. rc is the request context after every pipeline
// stage has run, so handlers never read it from the context themselves.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, rc auth.RequestContext)

// ServeHTTP adapts h to http.Handler.
func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc, ok := auth.RequestContextFrom(r.Context())
	if !ok {
		fresh := auth.NewRequestContext(r.Header)
		rc = &fresh
	}
	h(w, r, *rc)
}

// Route declares one endpoint and the policy guarding it.
type Route struct {
	Method  string
	Pattern string
	Policy  policy.SecurityPolicy
	Handler HandlerFunc
}

// RouterOptions controls the construction of the gatehouse HTTP router.
type RouterOptions struct {
	Cfg    *config.Config
	Logger *slog.Logger

	// Identity resolves principals and trusted callers. Nil leaves every
	// request anonymous.
	Identity  gatemw.IdentityResolver
	Evaluator gatemw.PolicyEvaluator
	// Limiter enforces the rate limit presets. Nil disables rate limiting.
	Limiter ratelimit.Limiter

	Routes        []Route
	HealthChecks  []HealthCheck
	ServerMetrics *telemetry.ServerMetrics
	CORSOptions   *cors.Options
}

// DefaultCORSOptions returns the CORS policy for the configured origins.
func DefaultCORSOptions(cfg config.CORSConfig) cors.Options {
	return cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			auth.HeaderRequestID,
			iam.HeaderAuthorization,
			iam.HeaderWorkerSecret,
			iam.HeaderWorkerSignature,
		},
		ExposedHeaders: []string{
			auth.HeaderRequestID,
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter assembles the request pipeline and mounts opts.Routes.
//
// Stage order is fixed: request context, panic recovery, request tracking,
// CORS, security headers, identity resolution, then per route the rate limit
// and policy guard. Routes cannot reorder or skip stages.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if opts.Cfg == nil {
		return nil, ErrConfigRequired
	}
	if opts.Evaluator == nil {
		return nil, ErrEvaluatorRequired
	}
	cfg := opts.Cfg
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(gatemw.RequestContext)
	r.Use(gatemw.Recoverer(logger, cfg.IsDevelopment()))
	if cfg.RequestTracking {
		r.Use(gatemw.RequestTracking(logger, opts.ServerMetrics))
	}
	if cfg.CORS.Enabled {
		corsCfg := DefaultCORSOptions(cfg.CORS)
		if opts.CORSOptions != nil {
			corsCfg = *opts.CORSOptions
		}
		r.Use(cors.Handler(corsCfg))
	}
	if cfg.SecurityHeaders {
		r.Use(gatemw.SecurityHeaders(cfg.IsProduction()))
	}
	if opts.Identity != nil {
		r.Use(gatemw.Identity(opts.Identity, logger))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierror.Write(w, apierror.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierror.Write(w, apierror.MethodNotAllowed())
	})

	r.Get("/health", HandleHealth(cfg.ServiceName, cfg.Version, opts.HealthChecks, logger, cfg.IsDevelopment()))

	guard := gatemw.NewGuard(gatemw.GuardOptions{
		Evaluator:    opts.Evaluator,
		Limiter:      opts.Limiter,
		Limits:       cfg.RateLimit.Presets,
		ExposeErrors: cfg.IsDevelopment(),
		Logger:       logger,
	})

	seen := make(map[string]struct{}, len(opts.Routes))
	for _, rt := range opts.Routes {
		if err := validateRoute(rt); err != nil {
			return nil, err
		}
		key := strings.ToUpper(rt.Method) + " " + rt.Pattern
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
		}
		seen[key] = struct{}{}

		if err := guard.Validate(rt.Policy); err != nil {
			return nil, fmt.Errorf("route %s: %w", key, err)
		}
		r.With(guard.Require(rt.Policy)).Method(rt.Method, rt.Pattern, rt.Handler)
	}

	return r, nil
}

var routeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

func validateRoute(rt Route) error {
	switch {
	case !routeMethods[strings.ToUpper(rt.Method)]:
		return fmt.Errorf("%w: unsupported method %q (%s)", ErrInvalidRoute, rt.Method, rt.Pattern)
	case !strings.HasPrefix(rt.Pattern, "/"):
		return fmt.Errorf("%w: pattern must start with / (%q)", ErrInvalidRoute, rt.Pattern)
	case rt.Handler == nil:
		return fmt.Errorf("%w: handler is required (%s %s)", ErrInvalidRoute, rt.Method, rt.Pattern)
	}
	return nil
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/ratelimit"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/authz"
)

// PolicyEvaluator decides whether a request satisfies a route policy.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, rc auth.RequestContext, p policy.SecurityPolicy, params authz.RouteParams) (authz.Decision, error)
}

// GuardOptions configures the per-route guard.
type GuardOptions struct {
	Evaluator PolicyEvaluator
	// Limiter counts requests per preset; nil disables rate limiting.
	Limiter ratelimit.Limiter
	// Limits maps rate limit preset names to requests per window.
	Limits map[string]int
	// ExposeErrors includes collaborator error text in INTERNAL_ERROR details.
	ExposeErrors bool
	Logger       *slog.Logger
}

// Guard enforces route policies.
type Guard struct {
	opts GuardOptions
	now  func() time.Time
}

// ErrUnknownPreset is returned by Validate for a policy naming a rate limit
// preset with no configured limit.
var ErrUnknownPreset = errors.New("unknown rate limit preset")

// NewGuard creates a guard.
func NewGuard(opts GuardOptions) *Guard {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Guard{opts: opts, now: time.Now}
}

// Validate checks that p can be enforced. The router calls it for every route
// at construction time.
func (g *Guard) Validate(p policy.SecurityPolicy) error {
	if g.opts.Limiter == nil {
		return nil
	}
	if _, ok := g.opts.Limits[p.RateLimitPreset]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownPreset, p.RateLimitPreset)
	}
	return nil
}

// Require returns the middleware enforcing p. It must be mounted after routing
// so the route's URL parameters are available.
//
// Order: rate limit, then policy evaluation. On success the handler runs with
// the organization id (if any) copied into the request context.
func (g *Guard) Require(p policy.SecurityPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rc := requestContext(r)

			if !g.rateLimit(w, r, rc, p) {
				return
			}

			if g.opts.Evaluator == nil {
				g.internalError(w, r, rc, errors.New("policy evaluator not configured"))
				return
			}
			decision, err := g.opts.Evaluator.Evaluate(ctx, rc, p, RouteParams(r))
			if err != nil {
				g.internalError(w, r, rc, err)
				return
			}
			if !decision.Allowed {
				d := decision.Deny
				if d == nil {
					g.internalError(w, r, rc, errors.New("evaluator returned neither allow nor deny"))
					return
				}
				apierror.Write(w, apierror.New(d.Status, d.Code, d.Message, d.Details))
				return
			}

			if decision.OrganizationID != "" {
				rc = rc.WithOrganization(decision.OrganizationID)
			}
			next.ServeHTTP(w, withRequestContext(r, rc))
		})
	}
}

// rateLimit reports whether the request may proceed. It writes the response
// when it may not.
func (g *Guard) rateLimit(w http.ResponseWriter, r *http.Request, rc auth.RequestContext, p policy.SecurityPolicy) bool {
	if g.opts.Limiter == nil {
		return true
	}
	limit, ok := g.opts.Limits[p.RateLimitPreset]
	if !ok {
		g.internalError(w, r, rc, fmt.Errorf("%w %q", ErrUnknownPreset, p.RateLimitPreset))
		return false
	}

	d, err := g.opts.Limiter.Allow(r.Context(), rateLimitKey(rc, p.RateLimitPreset), limit)
	if err != nil {
		g.internalError(w, r, rc, err)
		return false
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	if d.Allowed {
		return true
	}

	retry := int(d.RetryAfter(g.now()).Seconds())
	h.Set("Retry-After", strconv.Itoa(retry))
	g.opts.Logger.InfoContext(r.Context(), "rate limited",
		"request_id", rc.RequestID,
		"preset", p.RateLimitPreset,
		"client_ip", rc.ClientIP,
	)
	apierror.Write(w, apierror.RateLimited(retry))
	return false
}

func (g *Guard) internalError(w http.ResponseWriter, r *http.Request, rc auth.RequestContext, err error) {
	g.opts.Logger.ErrorContext(r.Context(), "request guard failed",
		"request_id", rc.RequestID,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	apierror.Write(w, apierror.Internal(err, g.opts.ExposeErrors))
}

// rateLimitKey counts authenticated callers by principal and everyone else by
// client ip.
func rateLimitKey(rc auth.RequestContext, preset string) string {
	if id := rc.PrincipalID(); id != "" {
		return preset + ":user:" + id
	}
	return preset + ":ip:" + rc.ClientIP
}

// RouteParams returns the matched chi URL parameters of r.
func RouteParams(r *http.Request) authz.RouteParams {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return authz.RouteParams{}
	}
	params := make(authz.RouteParams, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}

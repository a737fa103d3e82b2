package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/config"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/ratelimit"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/authz"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/iam"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:     "gatehouse",
		Version:         "test",
		Environment:     config.EnvDevelopment,
		CORS:            config.CORSConfig{Enabled: true, AllowedOrigins: []string{"https://shop.example.com"}},
		SecurityHeaders: true,
		RequestTracking: true,
		RateLimit: config.RateLimitConfig{
			Window:  time.Minute,
			Presets: config.DefaultRateLimitPresets(),
		},
	}
}

// staticResolver resolves every request to the same identity.
type staticResolver struct {
	principal *auth.Principal
	trusted   bool
	err       error
}

func (s staticResolver) AuthenticateRequest(context.Context, iam.AuthRequest) (*auth.Principal, error) {
	return s.principal, s.err
}

func (s staticResolver) VerifyWorker(context.Context, iam.AuthRequest) bool {
	return s.trusted
}

func noMemberships() membership.Lookup {
	return membership.LookupFunc(func(context.Context, string, string) (*membership.Record, error) {
		return nil, nil
	})
}

func newTestRouter(t *testing.T, opts RouterOptions) http.Handler {
	t.Helper()
	if opts.Cfg == nil {
		opts.Cfg = testConfig()
	}
	if opts.Evaluator == nil {
		opts.Evaluator = authz.NewEvaluator(noMemberships(), authz.MustOrgPermissions())
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	r, err := NewRouter(opts)
	require.NoError(t, err)
	return r
}

type errorBody struct {
	Error apierror.Error `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apierror.Error {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func okRoute(method, pattern string, p policy.SecurityPolicy) Route {
	return Route{
		Method:  method,
		Pattern: pattern,
		Policy:  p,
		Handler: func(w http.ResponseWriter, _ *http.Request, rc auth.RequestContext) {
			apierror.WriteJSON(w, http.StatusOK, map[string]string{"requestId": rc.RequestID})
		},
	}
}

func TestNewRouter_RequiresConfigAndEvaluator(t *testing.T) {
	_, err := NewRouter(RouterOptions{})
	assert.ErrorIs(t, err, ErrConfigRequired)

	_, err = NewRouter(RouterOptions{Cfg: testConfig()})
	assert.ErrorIs(t, err, ErrEvaluatorRequired)
}

func TestNewRouter_RejectsInvalidRoutes(t *testing.T) {
	eval := authz.NewEvaluator(noMemberships(), authz.MustOrgPermissions())

	tests := []struct {
		name   string
		routes []Route
		want   error
	}{
		{"missing handler", []Route{{Method: http.MethodGet, Pattern: "/x", Policy: policy.Public()}}, ErrInvalidRoute},
		{"unsupported method", []Route{okRoute("LOCK", "/x", policy.Public())}, ErrInvalidRoute},
		{"relative pattern", []Route{okRoute(http.MethodGet, "x", policy.Public())}, ErrInvalidRoute},
		{"duplicate", []Route{okRoute(http.MethodGet, "/x", policy.Public()), okRoute("get", "/x", policy.Authenticated())}, ErrDuplicateRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRouter(RouterOptions{Cfg: testConfig(), Evaluator: eval, Routes: tt.routes})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRouter_UnknownPresetFailsAtConstruction(t *testing.T) {
	p := policy.Merge(&policy.Partial{AuthTier: policy.Tier(policy.TierNone), RateLimitPreset: policy.Preset("uploads")})

	_, err := NewRouter(RouterOptions{
		Cfg:       testConfig(),
		Evaluator: authz.NewEvaluator(noMemberships(), authz.MustOrgPermissions()),
		Limiter:   ratelimit.NewInMemory(time.Minute),
		Routes:    []Route{okRoute(http.MethodGet, "/x", p)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploads")
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	h := newTestRouter(t, RouterOptions{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apierror.CodeNotFound, decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get(auth.HeaderRequestID))
}

func TestRouter_MethodNotAllowedEnvelope(t *testing.T) {
	h := newTestRouter(t, RouterOptions{Routes: []Route{okRoute(http.MethodGet, "/x", policy.Public())}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/x", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, apierror.CodeMethodNotAllowed, decodeError(t, rec).Code)
}

func TestRouter_StagesRunForEveryRoute(t *testing.T) {
	h := newTestRouter(t, RouterOptions{Routes: []Route{okRoute(http.MethodGet, "/x", policy.Public())}})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(auth.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(auth.HeaderRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "hsts is production only")
	assert.JSONEq(t, `{"data":{"requestId":"req-123"}}`, rec.Body.String())
}

func TestRouter_DenialFromPolicy(t *testing.T) {
	h := newTestRouter(t, RouterOptions{Routes: []Route{okRoute(http.MethodGet, "/x", policy.Authenticated())}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CodeUnauthorized, decodeError(t, rec).Code)
}

func TestRouter_IdentityFailureOnlyBreaksRequiredRoutes(t *testing.T) {
	h := newTestRouter(t, RouterOptions{
		Identity: staticResolver{err: errors.New("session store down")},
		Routes: []Route{
			okRoute(http.MethodGet, "/public", policy.Public()),
			okRoute(http.MethodGet, "/private", policy.Authenticated()),
		},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, apierror.CodeInternal, e.Code)
	assert.Equal(t, apierror.MsgInternal, e.Message)
}

func TestRouter_PanicIsInternalError(t *testing.T) {
	h := newTestRouter(t, RouterOptions{Routes: []Route{{
		Method:  http.MethodGet,
		Pattern: "/boom",
		Policy:  policy.Public(),
		Handler: func(http.ResponseWriter, *http.Request, auth.RequestContext) { panic("boom") },
	}}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apierror.CodeInternal, decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get(auth.HeaderRequestID))
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(t, RouterOptions{Routes: []Route{okRoute(http.MethodPost, "/x", policy.Public())}})

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_RateLimitedRoute(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Presets = map[string]int{policy.RateLimitWeb: 1}
	h := newTestRouter(t, RouterOptions{
		Cfg:     cfg,
		Limiter: ratelimit.NewInMemory(time.Minute),
		Routes:  []Route{okRoute(http.MethodGet, "/x", policy.Public())},
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, apierror.CodeRateLimited, decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := newTestRouter(t, RouterOptions{HealthChecks: []HealthCheck{
			{Name: "database", Check: func(context.Context) error { return nil }},
		}})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, StatusHealthy, body.Status)
		assert.Equal(t, "gatehouse", body.Service)
		assert.Equal(t, "test", body.Version)
		assert.Equal(t, map[string]checkResult{"database": {Status: CheckOK}}, body.Checks)
	})

	t.Run("no checks still reports an empty checks object", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleHealth("svc", "1", nil, discardLogger(), false).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		require.Contains(t, raw, "checks")
		assert.JSONEq(t, `{}`, string(raw["checks"]))
	})

	failing := []HealthCheck{
		{Name: "database", Check: func(context.Context) error { return nil }},
		{Name: "rate_limit_store", Check: func(context.Context) error { return ratelimit.ErrStoreUnavailable }},
	}

	t.Run("failing check is 503 with a generic message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleHealth("svc", "1", failing, discardLogger(), false).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, StatusUnhealthy, body.Status)
		assert.Equal(t, checkResult{Status: CheckOK}, body.Checks["database"])
		assert.Equal(t, CheckError, body.Checks["rate_limit_store"].Status)
		assert.Equal(t, checkFailedMessage, body.Checks["rate_limit_store"].Message)
		assert.NotContains(t, rec.Body.String(), "unavailable")
	})

	t.Run("development exposes the check error", func(t *testing.T) {
		h := newTestRouter(t, RouterOptions{HealthChecks: failing})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, ratelimit.ErrStoreUnavailable.Error(), body.Checks["rate_limit_store"].Message)
	})
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "short", truncateUTF8("short", 10))
	assert.Equal(t, "abc", truncateUTF8("abcdef", 3))
	assert.Equal(t, "a", truncateUTF8("aé", 2), "never splits a rune")
}

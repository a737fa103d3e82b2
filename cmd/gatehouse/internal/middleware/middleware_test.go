package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/iam"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// captureContext records the request context seen by the final handler.
func captureContext(dst *auth.RequestContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, ok := auth.RequestContextFrom(r.Context())
		if ok {
			*dst = *rc
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestContext_GeneratesRequestID(t *testing.T) {
	var seen auth.RequestContext
	h := RequestContext(captureContext(&seen))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	got := rec.Header().Get(auth.HeaderRequestID)
	assert.Regexp(t, uuidPattern, got)
	assert.Equal(t, got, seen.RequestID)
	assert.Equal(t, auth.Unknown, seen.ClientIP)
}

func TestRequestContext_EchoesInboundRequestID(t *testing.T) {
	var seen auth.RequestContext
	h := RequestContext(captureContext(&seen))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(auth.HeaderRequestID, "custom-request-id-123")
	req.Header.Set(auth.HeaderCFConnectingIP, "192.168.1.1")
	req.Header.Set(auth.HeaderUserAgent, "test-agent/1.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "custom-request-id-123", rec.Header().Get(auth.HeaderRequestID))
	assert.Equal(t, "custom-request-id-123", seen.RequestID)
	assert.Equal(t, "192.168.1.1", seen.ClientIP)
	assert.Equal(t, "test-agent/1.0", seen.UserAgent)
}

func TestRequestContext_WritesOnlyTheCorrelationHeader(t *testing.T) {
	h := RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, rec.Header(), 1)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(false)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	SecurityHeaders(true)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

type fakeResolver struct {
	principal *auth.Principal
	err       error
	trusted   bool
	body      []byte
	signature string
}

func (f *fakeResolver) AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*auth.Principal, error) {
	return f.principal, f.err
}

func (f *fakeResolver) VerifyWorker(ctx context.Context, req iam.AuthRequest) bool {
	f.body = req.Body
	f.signature = req.Headers.Get(iam.HeaderWorkerSignature)
	return f.trusted
}

func TestIdentity_AttachesPrincipal(t *testing.T) {
	resolver := &fakeResolver{principal: &auth.Principal{ID: "user-1", PlatformRole: auth.RoleCreator}}
	var seen auth.RequestContext
	h := RequestContext(Identity(resolver, discardLogger())(captureContext(&seen)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen.Principal)
	assert.Equal(t, "user-1", seen.Principal.ID)
	assert.False(t, seen.TrustedCaller)
	assert.NoError(t, seen.IdentityErr)
	assert.NotEmpty(t, seen.RequestID)
}

func TestIdentity_FailureNeverDenies(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("session store down")}
	var seen auth.RequestContext
	h := RequestContext(Identity(resolver, discardLogger())(captureContext(&seen)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, seen.Principal)
	assert.EqualError(t, seen.IdentityErr, "session store down")
}

func TestIdentity_TrustedCallerWithoutPrincipal(t *testing.T) {
	resolver := &fakeResolver{trusted: true}
	var seen auth.RequestContext
	h := RequestContext(Identity(resolver, discardLogger())(captureContext(&seen)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.True(t, seen.TrustedCaller)
	assert.Nil(t, seen.Principal)
}

func TestIdentity_BuffersSignedBody(t *testing.T) {
	resolver := &fakeResolver{trusted: true}
	var handlerBody []byte
	h := Identity(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerBody, _ = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"completed"}`))
	req.Header.Set(iam.HeaderWorkerSignature, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, `{"status":"completed"}`, string(resolver.body))
	assert.Equal(t, `{"status":"completed"}`, string(handlerBody))
	assert.Equal(t, "abc", resolver.signature)
}

func TestIdentity_OversizedSignedBodyIsNotVerified(t *testing.T) {
	resolver := &fakeResolver{}
	var handlerBody []byte
	h := Identity(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerBody, _ = io.ReadAll(r.Body)
	}))

	payload := bytes.Repeat([]byte("a"), MaxSignedBodyBytes+10)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set(iam.HeaderWorkerSignature, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, resolver.signature, "no signature check against a truncated body")
	assert.Nil(t, resolver.body)
	assert.Equal(t, len(payload), len(handlerBody))
	assert.Equal(t, "abc", req.Header.Get(iam.HeaderWorkerSignature), "request headers are untouched")
}

func TestRecoverer(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	for _, expose := range []bool{false, true} {
		rec := httptest.NewRecorder()
		Recoverer(discardLogger(), expose)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.Equal(t, "Internal server error", body.Error.Message)
		if expose {
			assert.Contains(t, body.Error.Details["error"], "boom")
		} else {
			assert.Nil(t, body.Error.Details)
		}
	}
}

func TestRequestTracking_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestContext(RequestTracking(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set(auth.HeaderRequestID, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/api/v1/status", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
}

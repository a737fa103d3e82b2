package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Header names read and written by the request context stage.
const (
	HeaderRequestID      = "X-Request-ID"
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderRealIP         = "X-Real-IP"
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderUserAgent      = "User-Agent"
)

// Unknown is the sentinel stored when a client attribute cannot be derived.
const Unknown = "unknown"

// RequestContext is the typed, per-request value threaded through the pipeline.
//
// It is built once by NewRequestContext, enriched by identity resolution
// (Principal, TrustedCaller, IdentityErr) and, after a successful
// organization-management check, by WithOrganization. Every later stage receives
// it by value so nothing downstream can mutate what an earlier stage decided.
type RequestContext struct {
	// RequestID correlates log lines and responses. Never empty.
	RequestID string
	// ClientIP is derived from edge headers; Unknown when absent.
	ClientIP string
	// UserAgent is the inbound User-Agent; Unknown when absent.
	UserAgent string

	// Principal is set only by identity resolution.
	Principal *Principal
	// TrustedCaller is set only by service-to-service verification.
	TrustedCaller bool
	// IdentityErr records a session-service failure observed while resolving
	// the principal. The request continues anonymously; the evaluator decides
	// whether the route can tolerate that.
	IdentityErr error

	// OrganizationID is set after a successful organization-management check.
	OrganizationID string
}

// NewRequestContext derives the correlation fields from inbound headers.
func NewRequestContext(h http.Header) RequestContext {
	return RequestContext{
		RequestID: requestIDFrom(h),
		ClientIP:  ClientIPFrom(h),
		UserAgent: userAgentFrom(h),
	}
}

// Authenticated reports whether a principal is attached.
func (rc RequestContext) Authenticated() bool {
	return rc.Principal != nil
}

// WithIdentity returns a copy carrying the identity resolution results.
func (rc RequestContext) WithIdentity(p *Principal, trusted bool, identityErr error) RequestContext {
	rc.Principal = p
	rc.TrustedCaller = trusted
	rc.IdentityErr = identityErr
	return rc
}

// WithOrganization returns a copy with OrganizationID set.
func (rc RequestContext) WithOrganization(organizationID string) RequestContext {
	rc.OrganizationID = organizationID
	return rc
}

// PrincipalID returns the principal's id or "" for anonymous requests.
func (rc RequestContext) PrincipalID() string {
	if rc.Principal == nil {
		return ""
	}
	return rc.Principal.ID
}

func requestIDFrom(h http.Header) string {
	if id := h.Get(HeaderRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

// ClientIPFrom applies the edge header precedence: CF-Connecting-IP, X-Real-IP,
// then the first entry of X-Forwarded-For.
func ClientIPFrom(h http.Header) string {
	if ip := strings.TrimSpace(h.Get(HeaderCFConnectingIP)); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get(HeaderRealIP)); ip != "" {
		return ip
	}
	if fwd := h.Get(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return Unknown
}

func userAgentFrom(h http.Header) string {
	if ua := h.Get(HeaderUserAgent); ua != "" {
		return ua
	}
	return Unknown
}

type requestContextKey struct{}

// WithRequestContext attaches the request context to ctx. Only the HTTP
// boundary uses this; typed handlers receive the value as a parameter.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom retrieves the request context attached by the pipeline.
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok && rc != nil
}

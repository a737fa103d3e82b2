// Package middleware holds the stages of the request pipeline. Each stage is a
// chi-compatible func(http.Handler) http.Handler; the server package composes
// them in a fixed order.
package middleware

import (
	"net/http"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

// RequestContext derives the request id, client ip and user agent, echoes the
// request id as X-Request-ID and attaches the typed context. It must run before
// any stage that logs or evaluates policy.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := auth.NewRequestContext(r.Header)
		w.Header().Set(auth.HeaderRequestID, rc.RequestID)
		next.ServeHTTP(w, r.WithContext(auth.WithRequestContext(r.Context(), &rc)))
	})
}

// requestContext returns the attached context, or a freshly derived one when
// the RequestContext stage did not run (handlers mounted outside the router).
func requestContext(r *http.Request) auth.RequestContext {
	if rc, ok := auth.RequestContextFrom(r.Context()); ok {
		return *rc
	}
	return auth.NewRequestContext(r.Header)
}

// withRequestContext replaces the attached context with rc.
func withRequestContext(r *http.Request, rc auth.RequestContext) *http.Request {
	return r.WithContext(auth.WithRequestContext(r.Context(), &rc))
}

package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/iam"
)

// MaxSignedBodyBytes bounds the body buffered for worker signature checks.
const MaxSignedBodyBytes = 1 << 20

// IdentityResolver is the part of iam.Service the identity stage needs.
type IdentityResolver interface {
	AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*auth.Principal, error)
	VerifyWorker(ctx context.Context, req iam.AuthRequest) bool
}

// Identity attaches the principal and trusted-caller flag to the request
// context.
//
// It never writes a response. Missing or invalid credentials leave the request
// anonymous; a resolver failure is recorded as IdentityErr for the evaluator
// to act on.
func Identity(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rc := requestContext(r)

			authReq := iam.NewAuthRequest(r)
			if r.Header.Get(iam.HeaderWorkerSignature) != "" && r.Body != nil {
				authReq = bufferSignedBody(r, authReq, rc.RequestID, logger)
			}

			principal, err := resolver.AuthenticateRequest(ctx, authReq)
			if err != nil {
				logger.ErrorContext(ctx, "identity resolution failed",
					"request_id", rc.RequestID,
					"method", r.Method,
					"path", r.URL.Path,
					"error", err,
				)
				principal = nil
			}
			trusted := resolver.VerifyWorker(ctx, authReq)

			next.ServeHTTP(w, withRequestContext(r, rc.WithIdentity(principal, trusted, err)))
		})
	}
}

// bufferSignedBody reads up to MaxSignedBodyBytes for signature verification
// and puts the body back for the handler. A larger body is never verified
// against a prefix: the signature header is dropped from the auth request and
// the handler still receives the full stream.
func bufferSignedBody(r *http.Request, authReq iam.AuthRequest, requestID string, logger *slog.Logger) iam.AuthRequest {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxSignedBodyBytes+1))
	if err != nil {
		logger.WarnContext(ctx, "read signed body", "request_id", requestID, "error", err)
	}

	if len(body) > MaxSignedBodyBytes {
		logger.WarnContext(ctx, "signed body too large to verify",
			"request_id", requestID,
			"limit", MaxSignedBodyBytes,
		)
		r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(body), r.Body), Closer: r.Body}
		authReq.Headers = r.Header.Clone()
		authReq.Headers.Del(iam.HeaderWorkerSignature)
		return authReq
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	authReq.Body = body
	return authReq
}

type readCloser struct {
	io.Reader
	io.Closer
}

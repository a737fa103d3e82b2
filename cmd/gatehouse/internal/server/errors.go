package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
)

var (
	// ErrConfigRequired is returned by NewRouter without a configuration
	ErrConfigRequired = errors.New("router configuration is required")

	// ErrEvaluatorRequired is returned by NewRouter without a policy evaluator
	ErrEvaluatorRequired = errors.New("policy evaluator is required")

	// ErrInvalidRoute is returned for a route missing its method, pattern or handler
	ErrInvalidRoute = errors.New("invalid route")

	// ErrDuplicateRoute is returned when two routes share a method and pattern
	ErrDuplicateRoute = errors.New("duplicate route")
)

// writeInternal logs err and renders INTERNAL_ERROR. The error text reaches
// the client only when expose is set.
func writeInternal(w http.ResponseWriter, r *http.Request, rc auth.RequestContext, logger *slog.Logger, expose bool, err error) {
	logger.ErrorContext(r.Context(), "request failed",
		"request_id", rc.RequestID,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	apierror.Write(w, apierror.Internal(err, expose))
}

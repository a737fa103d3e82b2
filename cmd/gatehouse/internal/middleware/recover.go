package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
)

// Recoverer turns a handler panic into an INTERNAL_ERROR response. The panic
// value is only included in the response when expose is set.
func Recoverer(logger *slog.Logger, expose bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				err := fmt.Errorf("panic: %v", rvr)
				logger.ErrorContext(r.Context(), "handler panic",
					"request_id", requestContext(r).RequestID,
					"error", err,
					"stack", string(debug.Stack()),
				)
				apierror.Write(w, apierror.Internal(err, expose))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

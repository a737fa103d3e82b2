package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/authz"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/validation"
)

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

// HandlerDeps holds the collaborators of the API handlers.
type HandlerDeps struct {
	IAM        iamHandlerService
	Members    memberService
	Products   repository.ProductRepository
	Transcodes repository.MediaTranscodeRepository
	Validator  validation.Validator
	Logger     *slog.Logger

	ServiceName string
	Version     string
	// ExposeErrors includes internal error text in responses (development).
	ExposeErrors bool
}

// OrganizationMembersPattern is the route of the organization member handlers.
var OrganizationMembersPattern = "/api/v1/organizations/{" + authz.OrganizationIDParam + "}/members"

// APIRoutes returns the gatehouse API surface with the policy of each route.
func APIRoutes(deps HandlerDeps) []Route {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handlers{deps: deps}

	return []Route{
		{Method: http.MethodGet, Pattern: "/api/v1/status", Policy: policy.Public(), Handler: h.status},
		{Method: http.MethodGet, Pattern: "/api/v1/me", Policy: policy.Authenticated(), Handler: h.me},
		{Method: http.MethodDelete, Pattern: "/api/v1/me/sessions", Policy: policy.Sensitive(), Handler: h.revokeSessions},
		{Method: http.MethodPost, Pattern: "/api/v1/products", Policy: policy.CreatorGated(), Handler: h.createProduct},
		{Method: http.MethodGet, Pattern: "/api/v1/admin/users", Policy: policy.AdminOnly(), Handler: h.listUsers},
		{Method: http.MethodGet, Pattern: OrganizationMembersPattern, Policy: policy.OrgManagement(), Handler: h.listMembers},
		{Method: http.MethodPost, Pattern: OrganizationMembersPattern, Policy: policy.OrgManagement(), Handler: h.addMember},
		{Method: http.MethodPost, Pattern: "/internal/v1/transcode/callback", Policy: policy.ServiceToService(), Handler: h.transcodeCallback},
	}
}

type handlers struct {
	deps HandlerDeps
}

func (h *handlers) internal(w http.ResponseWriter, r *http.Request, rc auth.RequestContext, err error) {
	writeInternal(w, r, rc, h.deps.Logger, h.deps.ExposeErrors, err)
}

// readValidated reads the body and validates it against the named schema. It
// writes the error response and returns false when the body is unusable.
func (h *handlers) readValidated(w http.ResponseWriter, r *http.Request, rc auth.RequestContext, schema string) ([]byte, bool) {
	if h.deps.Validator == nil {
		h.internal(w, r, rc, errors.New("request validator not configured"))
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierror.Write(w, apierror.BadRequest(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)))
			return nil, false
		}
		apierror.Write(w, apierror.BadRequest("Could not read request body"))
		return nil, false
	}

	violations, err := h.deps.Validator.Validate(schema, body)
	switch {
	case errors.Is(err, validation.ErrMalformedBody):
		apierror.Write(w, apierror.BadRequest("Request body must be valid JSON"))
		return nil, false
	case err != nil:
		h.internal(w, r, rc, err)
		return nil, false
	case len(violations) > 0:
		apierror.Write(w, apierror.Validation("Request body failed validation", map[string]any{"fields": violations}))
		return nil, false
	}
	return body, true
}

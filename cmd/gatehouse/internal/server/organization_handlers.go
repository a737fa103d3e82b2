package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
)

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type memberView struct {
	UserID      string `json:"userId"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"`
	AddedBy     string `json:"addedBy,omitempty"`
}

func newMemberView(m membership.Member) memberView {
	return memberView{
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        m.Role.String(),
		AddedBy:     m.AddedBy,
	}
}

// listMembers handles GET /api/v1/organizations/{organizationId}/members
// The organization id is the one the guard authorized, never the raw URL value.
func (h *handlers) listMembers(w http.ResponseWriter, r *http.Request, rc auth.RequestContext) {
	members, err := h.deps.Members.ListMembers(r.Context(), rc.OrganizationID)
	if err != nil {
		h.internal(w, r, rc, err)
		return
	}
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, newMemberView(m))
	}
	apierror.WriteJSON(w, http.StatusOK, out)
}

// addMember handles POST /api/v1/organizations/{organizationId}/members
func (h *handlers) addMember(w http.ResponseWriter, r *http.Request, rc auth.RequestContext) {
	p, ok := requirePrincipal(w, rc)
	if !ok {
		return
	}
	body, ok := h.readValidated(w, r, rc, SchemaAddMember)
	if !ok {
		return
	}

	var req addMemberRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierror.Write(w, apierror.BadRequest("Request body must be valid JSON"))
		return
	}
	role, err := membership.ParseRole(req.Role)
	if err != nil {
		apierror.Write(w, apierror.Validation("Request body failed validation", map[string]any{
			"fields": []map[string]string{{"field": "/role", "message": err.Error()}},
		}))
		return
	}

	member, err := h.deps.Members.AddMember(r.Context(), rc.OrganizationID, req.Email, role, p.ID)
	if err != nil {
		if errors.Is(err, membership.ErrUnknownUser) {
			apierror.Write(w, apierror.NotFound("User not found"))
			return
		}
		h.internal(w, r, rc, err)
		return
	}

	h.deps.Logger.InfoContext(r.Context(), "member added",
		"request_id", rc.RequestID,
		"organization_id", rc.OrganizationID,
		"user_id", member.UserID,
		"role", member.Role,
		"added_by", p.ID,
	)
	apierror.WriteJSON(w, http.StatusCreated, newMemberView(*member))
}

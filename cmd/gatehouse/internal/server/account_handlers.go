package server

import (
	"net/http"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

type statusView struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

type principalView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PlatformRole  string `json:"platformRole"`
	EmailVerified bool   `json:"emailVerified"`
	SessionID     string `json:"sessionId,omitempty"`
}

type userView struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"displayName"`
	PlatformRole  string     `json:"platformRole"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	DisabledAt    *time.Time `json:"disabledAt,omitempty"`
}

func newUserView(u models.User) userView {
	return userView{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		PlatformRole:  u.PlatformRole,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		DisabledAt:    u.DisabledAt,
	}
}

// requirePrincipal writes 401 when the guard let an anonymous request through
// to a handler that needs a principal.
func requirePrincipal(w http.ResponseWriter, rc auth.RequestContext) (*auth.Principal, bool) {
	if rc.Principal == nil {
		apierror.Write(w, apierror.New(http.StatusUnauthorized, apierror.CodeUnauthorized, "Authentication required", nil))
		return nil, false
	}
	return rc.Principal, true
}

// status handles GET /api/v1/status
func (h *handlers) status(w http.ResponseWriter, _ *http.Request, _ auth.RequestContext) {
	apierror.WriteJSON(w, http.StatusOK, statusView{Service: h.deps.ServiceName, Version: h.deps.Version})
}

// me handles GET /api/v1/me
func (h *handlers) me(w http.ResponseWriter, _ *http.Request, rc auth.RequestContext) {
	p, ok := requirePrincipal(w, rc)
	if !ok {
		return
	}
	apierror.WriteJSON(w, http.StatusOK, principalView{
		ID:            p.ID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		PlatformRole:  p.PlatformRole.String(),
		EmailVerified: p.EmailVerified,
		SessionID:     p.SessionID,
	})
}

// revokeSessions handles DELETE /api/v1/me/sessions
// Revokes every session of the caller, including the one used for this request.
func (h *handlers) revokeSessions(w http.ResponseWriter, r *http.Request, rc auth.RequestContext) {
	p, ok := requirePrincipal(w, rc)
	if !ok {
		return
	}
	n, err := h.deps.IAM.RevokeUserSessions(r.Context(), p.ID)
	if err != nil {
		h.internal(w, r, rc, err)
		return
	}
	h.deps.Logger.InfoContext(r.Context(), "sessions revoked",
		"request_id", rc.RequestID,
		"user_id", p.ID,
		"count", n,
	)
	apierror.WriteJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

// listUsers handles GET /api/v1/admin/users
func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request, rc auth.RequestContext) {
	users, err := h.deps.IAM.ListUsers(r.Context())
	if err != nil {
		h.internal(w, r, rc, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	apierror.WriteJSON(w, http.StatusOK, out)
}

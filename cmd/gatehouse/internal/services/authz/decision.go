package authz

import "net/http"

// Error codes carried by denials.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeBadRequest   = "BAD_REQUEST"
)

// Denial messages.
const (
	MsgIPNotAllowed       = "IP not whitelisted"
	MsgAuthRequired       = "Authentication required"
	MsgWorkerAuthRequired = "Worker authentication required"
	MsgInsufficientRole   = "Insufficient permissions"
	MsgOrgIDMissing       = "Organization ID required but not found in route parameters"
	MsgOrgIDInvalid       = "Organization ID is not valid"
	MsgCannotManageOrg    = "You do not have permission to manage this organization"
)

// Denial is a structured refusal. The handler never runs.
type Denial struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

// Decision is the evaluator's verdict. Exactly one of Allowed or Deny is set.
type Decision struct {
	Allowed bool
	// OrganizationID is set after a successful organization-management check
	// and must be copied into the request context.
	OrganizationID string
	Deny           *Denial
}

// Allow returns a proceeding decision.
func Allow(organizationID string) Decision {
	return Decision{Allowed: true, OrganizationID: organizationID}
}

// Deny returns a refusing decision.
func Deny(status int, code, message string, details map[string]any) Decision {
	return Decision{Deny: &Denial{Status: status, Code: code, Message: message, Details: details}}
}

func unauthorized(message string) Decision {
	return Deny(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func forbidden(message string, details map[string]any) Decision {
	return Deny(http.StatusForbidden, CodeForbidden, message, details)
}

// Outcome is allow or deny, for logs and metrics.
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

// Code returns the denial code or "".
func (d Decision) Code() string {
	if d.Deny == nil {
		return ""
	}
	return d.Deny.Code
}

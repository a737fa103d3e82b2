// Package authz evaluates a route's security policy against a request context.
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/policy"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/telemetry"
)

// OrganizationIDParam is the path parameter naming the organization on
// org-management routes.
const OrganizationIDParam = "organizationId"

const tracerName = "gatehouse/services/authz"

// RouteParams holds the matched path parameters of a route.
type RouteParams map[string]string

// Get returns the named parameter or "".
func (p RouteParams) Get(name string) string {
	if p == nil {
		return ""
	}
	return p[name]
}

// ErrIdentityUnavailable is returned when the route needs a principal but the
// session service failed while resolving one.
var ErrIdentityUnavailable = errors.New("identity resolution failed")

// Evaluator runs the ordered policy checks. It is safe for concurrent use and
// holds no per-request state.
type Evaluator struct {
	lookup  membership.Lookup
	perms   *OrgPermissions
	audit   AuditLogger
	metrics *telemetry.AuthzMetrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithAuditLogger records every decision.
func WithAuditLogger(l AuditLogger) Option {
	return func(e *Evaluator) { e.audit = l }
}

// WithMetrics counts decisions and times membership lookups.
func WithMetrics(m *telemetry.AuthzMetrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// NewEvaluator creates an evaluator. lookup is only called for policies that
// require organization management.
func NewEvaluator(lookup membership.Lookup, perms *OrgPermissions, opts ...Option) *Evaluator {
	e := &Evaluator{
		lookup: lookup,
		perms:  perms,
		audit:  NopAuditLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate checks, in order and stopping at the first failure: the IP
// allow-list, the auth tier, the role set and organization management.
//
// A non-nil error means no decision could be made (a collaborator failed) and
// must be reported as an internal failure, never as a denial.
func (e *Evaluator) Evaluate(ctx context.Context, rc auth.RequestContext, p policy.SecurityPolicy, params RouteParams) (Decision, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, tracerName, "authz.Evaluate",
		attribute.String(telemetry.AttrRequestID, rc.RequestID),
		attribute.String(telemetry.AttrClientIP, rc.ClientIP),
		attribute.String(telemetry.AttrPolicyTier, p.AuthTier.String()),
		attribute.String(telemetry.AttrPolicyPreset, p.RateLimitPreset),
		attribute.String(telemetry.AttrPrincipalID, rc.PrincipalID()),
		attribute.Bool(telemetry.AttrTrustedCaller, rc.TrustedCaller),
	)
	if rc.Principal != nil {
		span.SetAttributes(attribute.String(telemetry.AttrPrincipalRole, string(rc.Principal.PlatformRole)))
	}
	defer span.End()

	step, d, err := e.evaluate(ctx, rc, p, params)

	entry := AuditEntry{
		Timestamp:      start.UTC(),
		RequestID:      rc.RequestID,
		ClientIP:       rc.ClientIP,
		PrincipalID:    rc.PrincipalID(),
		TrustedCaller:  rc.TrustedCaller,
		Policy:         p.String(),
		Step:           step,
		OrganizationID: params.Get(OrganizationIDParam),
		DurationUS:     time.Since(start).Microseconds(),
	}
	if rc.Principal != nil {
		entry.Role = string(rc.Principal.PlatformRole)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		entry.Decision = "error"
		entry.Reason = err.Error()
		e.metrics.RecordDecision(ctx, "error", "", p.AuthTier.String())
		_ = e.audit.LogDecision(ctx, entry)
		return Decision{}, err
	}

	span.SetAttributes(
		attribute.Bool(telemetry.AttrPolicyAllowed, d.Allowed),
		attribute.String(telemetry.AttrPolicyCode, d.Code()),
		attribute.String(telemetry.AttrPolicyStep, step),
	)
	entry.Decision = d.Outcome()
	entry.Code = d.Code()
	if d.Deny != nil {
		entry.Status = d.Deny.Status
		entry.Reason = d.Deny.Message
	}
	e.metrics.RecordDecision(ctx, d.Outcome(), d.Code(), p.AuthTier.String())
	_ = e.audit.LogDecision(ctx, entry)
	return d, nil
}

// Evaluation steps, reported in audit entries.
const (
	StepIP           = "ip"
	StepTier         = "tier"
	StepRole         = "role"
	StepOrganization = "organization"
	StepComplete     = "complete"
)

func (e *Evaluator) evaluate(ctx context.Context, rc auth.RequestContext, p policy.SecurityPolicy, params RouteParams) (string, Decision, error) {
	if p.RestrictsIP() && !p.AllowsIP(rc.ClientIP) {
		return StepIP, forbidden(MsgIPNotAllowed, nil), nil
	}

	if d, err := checkTier(rc, p.AuthTier); err != nil || d != nil {
		return StepTier, deref(d), err
	}

	if len(p.AllowedRoles) > 0 {
		if rc.Principal == nil && rc.IdentityErr != nil {
			return StepRole, Decision{}, fmt.Errorf("%w: %w", ErrIdentityUnavailable, rc.IdentityErr)
		}
		if rc.Principal == nil || !p.AllowsRole(rc.Principal.PlatformRole) {
			return StepRole, forbidden(MsgInsufficientRole, map[string]any{"required": p.RoleStrings()}), nil
		}
	}

	if p.RequireOrgManagement {
		d, err := e.checkOrganization(ctx, rc, params)
		return StepOrganization, d, err
	}

	return StepComplete, Allow(""), nil
}

func checkTier(rc auth.RequestContext, tier policy.AuthTier) (*Decision, error) {
	switch tier {
	case policy.TierNone, policy.TierOptional:
		return nil, nil
	case policy.TierRequired:
		if rc.Principal != nil {
			return nil, nil
		}
		if rc.IdentityErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrIdentityUnavailable, rc.IdentityErr)
		}
		d := unauthorized(MsgAuthRequired)
		return &d, nil
	case policy.TierServiceToService:
		if rc.TrustedCaller {
			return nil, nil
		}
		d := unauthorized(MsgWorkerAuthRequired)
		return &d, nil
	default:
		return nil, fmt.Errorf("unknown auth tier %s", tier)
	}
}

func (e *Evaluator) checkOrganization(ctx context.Context, rc auth.RequestContext, params RouteParams) (Decision, error) {
	orgID := params.Get(OrganizationIDParam)
	if orgID == "" {
		return Deny(http.StatusBadRequest, CodeBadRequest, MsgOrgIDMissing, nil), nil
	}
	// Organization ids are UUIDs; anything else is client input the
	// membership store would reject as a query error.
	if _, err := uuid.Parse(orgID); err != nil {
		return Deny(http.StatusBadRequest, CodeBadRequest, MsgOrgIDInvalid, nil), nil
	}

	if rc.Principal == nil {
		if rc.IdentityErr != nil {
			return Decision{}, fmt.Errorf("%w: %w", ErrIdentityUnavailable, rc.IdentityErr)
		}
		return forbidden(MsgCannotManageOrg, nil), nil
	}
	if e.lookup == nil {
		return Decision{}, fmt.Errorf("%w: no membership lookup configured", membership.ErrLookupFailed)
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "membership.Lookup",
		attribute.String(telemetry.AttrOrganizationID, orgID),
	)
	start := time.Now()
	rec, err := e.lookup.Lookup(ctx, orgID, rc.Principal.ID)
	e.metrics.RecordLookup(ctx, float64(time.Since(start).Microseconds())/1000, err != nil)
	if err != nil {
		telemetry.RecordError(span, err)
		span.End()
		if !errors.Is(err, membership.ErrLookupFailed) {
			err = fmt.Errorf("%w: %w", membership.ErrLookupFailed, err)
		}
		return Decision{}, err
	}
	if rec != nil {
		span.SetAttributes(attribute.String(telemetry.AttrMembershipRole, string(rec.Role)))
	}
	span.End()

	if rec == nil {
		return forbidden(MsgCannotManageOrg, nil), nil
	}
	ok, err := e.perms.CanManage(rec.Role)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return forbidden(MsgCannotManageOrg, nil), nil
	}
	return Allow(orgID), nil
}

func deref(d *Decision) Decision {
	if d == nil {
		return Decision{}
	}
	return *d
}

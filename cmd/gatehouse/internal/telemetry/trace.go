package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a service operation.
//
//	ctx, span := telemetry.StartSpan(ctx, "gatehouse/services/authz", "authz.Evaluate",
//	    attribute.String(telemetry.AttrRequestID, rc.RequestID),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Common attribute keys for gatehouse spans
const (
	AttrRequestID = "request.id"
	AttrClientIP  = "client.ip"

	AttrPrincipalID   = "principal.id"
	AttrPrincipalRole = "principal.role"
	AttrTrustedCaller = "principal.trusted_caller"

	AttrPolicyTier    = "policy.auth_tier"
	AttrPolicyPreset  = "policy.rate_limit_preset"
	AttrPolicyAllowed = "policy.allowed"
	AttrPolicyCode    = "policy.code"
	AttrPolicyStep    = "policy.step"

	AttrOrganizationID = "organization.id"
	AttrMembershipRole = "membership.role"
)

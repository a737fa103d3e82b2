package authz

import (
	"context"
	"log/slog"
	"time"
)

// AuditEntry is a single authorization decision.
type AuditEntry struct {
	Timestamp      time.Time
	RequestID      string
	ClientIP       string
	PrincipalID    string
	Role           string
	TrustedCaller  bool
	Policy         string
	OrganizationID string
	Decision       string // allow, deny or error
	Step           string // the check that produced the decision
	Code           string
	Status         int
	Reason         string
	DurationUS     int64
}

// AuditLogger records authorization decisions.
type AuditLogger interface {
	LogDecision(ctx context.Context, entry AuditEntry) error
}

// SlogAuditLogger writes decisions as structured log lines.
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger creates an audit logger that writes to slog.
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger}
}

// LogDecision logs allow at debug, deny at info and error at error level.
func (l *SlogAuditLogger) LogDecision(ctx context.Context, entry AuditEntry) error {
	level := slog.LevelInfo
	switch entry.Decision {
	case "allow":
		level = slog.LevelDebug
	case "error":
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("event", "authz.decision"),
		slog.String("request_id", entry.RequestID),
		slog.String("client_ip", entry.ClientIP),
		slog.String("principal", entry.PrincipalID),
		slog.String("role", entry.Role),
		slog.Bool("trusted_caller", entry.TrustedCaller),
		slog.String("policy", entry.Policy),
		slog.String("decision", entry.Decision),
		slog.String("step", entry.Step),
		slog.Int64("duration_us", entry.DurationUS),
	}
	if entry.Code != "" {
		attrs = append(attrs, slog.String("code", entry.Code), slog.Int("status", entry.Status))
	}
	if entry.Reason != "" {
		attrs = append(attrs, slog.String("reason", entry.Reason))
	}
	if entry.OrganizationID != "" {
		attrs = append(attrs, slog.String("organization_id", entry.OrganizationID))
	}

	l.logger.LogAttrs(ctx, level, "authorization decision", attrs...)
	return nil
}

// NopAuditLogger discards all audit entries.
type NopAuditLogger struct{}

// LogDecision does nothing.
func (NopAuditLogger) LogDecision(context.Context, AuditEntry) error { return nil }

package iam

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/config"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/telemetry"
)

const tracerName = "gatehouse/services/iam"

// iamService implements the Service interface.
type iamService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository

	authenticators []Authenticator
	worker         *WorkerAuthenticator

	logger  *slog.Logger
	metrics *telemetry.AuthMetrics
}

// IAMServiceDependencies contains all dependencies for IAM service construction.
type IAMServiceDependencies struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Logger   *slog.Logger
	Metrics  *telemetry.AuthMetrics
}

// IAMServiceConfig contains configuration for IAM service construction.
// Separated from dependencies to clearly distinguish config from runtime dependencies.
type IAMServiceConfig struct {
	Config *config.Config
}

// NewIAMService creates a new IAM service with the session authenticator and,
// when a worker secret is configured, the worker authenticator.
func NewIAMService(deps IAMServiceDependencies, cfg IAMServiceConfig) (Service, error) {
	if deps.Users == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("iam: user and session repositories are required")
	}
	if cfg.Config == nil {
		return nil, fmt.Errorf("iam: config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &iamService{
		users:    deps.Users,
		sessions: deps.Sessions,
		authenticators: []Authenticator{
			NewSessionAuthenticator(deps.Users, deps.Sessions, cfg.Config.Session.CookieName, logger),
		},
		worker:  NewWorkerAuthenticator(cfg.Config.Worker.Secret, cfg.Config.Worker.Issuer),
		logger:  logger,
		metrics: deps.Metrics,
	}, nil
}

// AuthenticateRequest tries all registered authenticators in order.
//
// Algorithm:
//   - If authenticator returns (nil, nil): no credentials, try next
//   - If authenticator returns (nil, error): identity undecidable, stop and return error
//   - If authenticator returns (principal, nil): success, stop and return principal
//   - If all authenticators return (nil, nil): return (nil, nil) for anonymous request
func (s *iamService) AuthenticateRequest(ctx context.Context, req AuthRequest) (*auth.Principal, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.AuthenticateRequest",
		attribute.Int("authenticator_count", len(s.authenticators)),
	)
	defer span.End()

	for i, authenticator := range s.authenticators {
		principal, err := authenticator.Authenticate(ctx, req)
		if err != nil {
			telemetry.AddEvent(span, "authentication.failed",
				attribute.Int("authenticator_index", i),
				attribute.String("error", err.Error()),
			)
			telemetry.RecordError(span, err)
			s.metrics.RecordAuth(ctx, "session", false)
			return nil, err
		}
		if principal != nil {
			span.SetAttributes(
				attribute.String(telemetry.AttrPrincipalID, principal.ID),
				attribute.String(telemetry.AttrPrincipalRole, string(principal.PlatformRole)),
			)
			telemetry.AddEvent(span, "authentication.succeeded",
				attribute.Int("authenticator_index", i),
			)
			s.metrics.RecordAuth(ctx, "session", true)
			return principal, nil
		}
	}

	telemetry.AddEvent(span, "authentication.no_credentials")
	return nil, nil
}

func (s *iamService) VerifyWorker(ctx context.Context, req AuthRequest) bool {
	method := s.worker.Verify(req)
	if method == "" {
		if hasWorkerCredential(req) {
			s.metrics.RecordAuth(ctx, "worker", false)
			s.logger.WarnContext(ctx, "invalid worker credential")
		}
		return false
	}
	s.metrics.RecordAuth(ctx, method, true)
	return true
}

func hasWorkerCredential(req AuthRequest) bool {
	if req.Headers == nil {
		return false
	}
	if req.Headers.Get(HeaderWorkerSecret) != "" || req.Headers.Get(HeaderWorkerSignature) != "" {
		return true
	}
	_, ok := bearerToken(req.Headers.Get(HeaderAuthorization))
	return ok
}

func (s *iamService) CreateUser(ctx context.Context, email, displayName string, role auth.PlatformRole) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if role == "" {
		role = auth.RoleCustomer
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid platform role %q", role)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  displayName,
		PlatformRole: string(role),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *iamService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *iamService) CreateSession(ctx context.Context, userID string, ttl time.Duration, userAgent, ipAddress string) (*models.Session, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	if user.Disabled() {
		return nil, "", fmt.Errorf("create session: %w", auth.ErrIdentityDisabled)
	}

	token, hash, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	expiresAt := auth.CalculateExpiry(now)
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	session := &models.Session{
		UserID:     user.ID,
		TokenHash:  hash,
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ipAddress != "" {
		session.IPAddress = &ipAddress
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", err
	}
	return session, token, nil
}

func (s *iamService) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	return s.sessions.RevokeByUserID(ctx, userID)
}

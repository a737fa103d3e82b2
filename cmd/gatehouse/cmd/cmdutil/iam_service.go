package cmdutil

import (
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/config"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/bunx"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/repository"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/iam"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/services/membership"
)

// ServiceBundle bundles the services the control-plane commands use with their
// underlying DB connection.
type ServiceBundle struct {
	DB            *bun.DB
	IAM           iam.Service
	Users         repository.UserRepository
	Organizations repository.OrganizationRepository
	Members       *membership.Service
}

// Close releases the underlying database connection.
func (b *ServiceBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// NewServiceBundle centralizes service construction for CLI commands.
// Commands run without the membership cache, so no invalidation is needed.
func NewServiceBundle(cfg *config.Config, logger *slog.Logger) (*ServiceBundle, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, bunx.WithMaxConnections(cfg.MaxDBConnections))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	users := repository.NewBunUserRepository(db)
	iamService, err := iam.NewIAMService(
		iam.IAMServiceDependencies{
			Users:    users,
			Sessions: repository.NewBunSessionRepository(db),
			Logger:   logger,
		},
		iam.IAMServiceConfig{Config: cfg},
	)
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to create IAM service: %w", err)
	}

	return &ServiceBundle{
		DB:            db,
		IAM:           iamService,
		Users:         users,
		Organizations: repository.NewBunOrganizationRepository(db),
		Members:       membership.NewService(repository.NewBunMembershipRepository(db), users, nil),
	}, nil
}

// Load reads the configuration and opens the service bundle.
func Load() (*config.Config, *ServiceBundle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	bundle, err := NewServiceBundle(cfg, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return cfg, bundle, nil
}

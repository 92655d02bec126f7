package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Service resolves a tenant's access state from its stored profile.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}, nil
}

// AccessForTenant loads the tenant's profile and evaluates the state
// machine. A missing profile is not an error; it yields the free-tier
// default.
func (s *Service) AccessForTenant(ctx context.Context, tenantID string) (Access, error) {
	profile, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Access{}, fmt.Errorf("loading profile: %w", err)
	}
	access := CalculateAccess(profile, timeNow())
	s.logger.Debug("computed access",
		zap.String("tenant_id", tenantID),
		zap.String("status", access.Status),
		zap.String("tier", access.Tier),
	)
	return access, nil
}

package subscription

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a tenant has no profile. Callers pass a
// nil profile to CalculateAccess in that case.
var ErrNotFound = errors.New("profile not found")

// Repository loads billing profiles by tenant.
type Repository interface {
	FindByTenant(ctx context.Context, tenantID string) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}

// GormRepository backs profiles with a relational database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FindByTenant(ctx context.Context, tenantID string) (*Profile, error) {
	var profile Profile
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *GormRepository) Save(ctx context.Context, profile *Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// MemoryRepository is an in-memory Repository for tests and local runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]*Profile)}
}

func (r *MemoryRepository) FindByTenant(_ context.Context, tenantID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) Save(_ context.Context, profile *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *profile
	r.profiles[profile.TenantID] = &cp
	return nil
}

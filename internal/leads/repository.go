package leads

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no lead matches the lookup.
var ErrNotFound = errors.New("lead not found")

// Repository is the persistence boundary for leads. Every method takes
// an explicit tenant scope; there is no unscoped access path.
type Repository interface {
	FindByEmail(ctx context.Context, tenantID, botID, email string) (*Lead, error)
	FindByPhone(ctx context.Context, tenantID, botID, phone string) (*Lead, error)
	Insert(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	List(ctx context.Context, tenantID string, query string, limit int) ([]Lead, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// GormRepository stores leads in a relational database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) FindByEmail(ctx context.Context, tenantID, botID, email string) (*Lead, error) {
	return r.findOne(ctx, tenantID, botID, "email = ?", email)
}

func (r *GormRepository) FindByPhone(ctx context.Context, tenantID, botID, phone string) (*Lead, error) {
	return r.findOne(ctx, tenantID, botID, "phone = ?", phone)
}

func (r *GormRepository) findOne(ctx context.Context, tenantID, botID, cond string, val any) (*Lead, error) {
	var lead Lead
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_bot_id = ?", tenantID, botID).
		Where(cond, val).
		First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *GormRepository) Insert(ctx context.Context, lead *Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *GormRepository) Update(ctx context.Context, lead *Lead) error {
	return r.db.WithContext(ctx).Save(lead).Error
}

func (r *GormRepository) List(ctx context.Context, tenantID string, query string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	db := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if query != "" {
		like := "%" + query + "%"
		db = db.Where("email LIKE ? OR phone LIKE ? OR name LIKE ? OR company LIKE ?", like, like, like, like)
	}
	var out []Lead
	if err := db.Order("updated_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepository) Delete(ctx context.Context, tenantID, id string) error {
	res := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&Lead{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryRepository is an in-memory Repository for tests and local runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{leads: make(map[string]*Lead)}
}

func (r *MemoryRepository) FindByEmail(_ context.Context, tenantID, botID, email string) (*Lead, error) {
	return r.find(tenantID, botID, func(l *Lead) bool { return l.Email == email })
}

func (r *MemoryRepository) FindByPhone(_ context.Context, tenantID, botID, phone string) (*Lead, error) {
	return r.find(tenantID, botID, func(l *Lead) bool { return l.Phone == phone })
}

func (r *MemoryRepository) find(tenantID, botID string, match func(*Lead) bool) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.leads {
		if l.TenantID == tenantID && l.SourceBotID == botID && match(l) {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Insert(_ context.Context, lead *Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, lead *Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[lead.ID]; !ok {
		return ErrNotFound
	}
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

func (r *MemoryRepository) List(_ context.Context, tenantID string, query string, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	q := strings.ToLower(query)
	r.mu.RLock()
	var out []Lead
	for _, l := range r.leads {
		if l.TenantID != tenantID {
			continue
		}
		if q != "" && !matchesQuery(l, q) {
			continue
		}
		out = append(out, *l)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesQuery(l *Lead, q string) bool {
	for _, field := range []string{l.Email, l.Phone, l.Name, l.Company} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok || l.TenantID != tenantID {
		return ErrNotFound
	}
	delete(r.leads, id)
	return nil
}

// Count returns the number of stored leads. Test helper.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads)
}

package documents

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a document lookup misses.
var ErrNotFound = errors.New("document not found")

// Document is one piece of workspace knowledge. The text lives here;
// its derived chunks live in the vector store and are recreated
// whenever the text changes.
type Document struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	TenantID string `gorm:"not null;index"`
	UserID   string

	Title   string
	Content string `gorm:"type:text"`
	// ChunkCount is the number of chunks currently indexed.
	ChunkCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the persistence boundary for document metadata.
type Repository interface {
	Get(ctx context.Context, tenantID, id string) (*Document, error)
	List(ctx context.Context, tenantID string) ([]Document, error)
	Save(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, tenantID, id string) error
}

// GormRepository stores documents in a relational database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Get(ctx context.Context, tenantID, id string) (*Document, error) {
	var doc Document
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *GormRepository) List(ctx context.Context, tenantID string) ([]Document, error) {
	var out []Document
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("updated_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepository) Save(ctx context.Context, doc *Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *GormRepository) Delete(ctx context.Context, tenantID, id string) error {
	res := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]*Document)}
}

func (r *MemoryRepository) Get(_ context.Context, tenantID, id string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *MemoryRepository) List(_ context.Context, tenantID string) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.docs {
		if doc.TenantID == tenantID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Save(_ context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.TenantID != tenantID {
		return ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

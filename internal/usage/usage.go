// Package usage tracks monthly per-workspace message counters.
package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Counter is one tenant's usage for one calendar month.
type Counter struct {
	TenantID string `gorm:"primaryKey"`
	// Month is the first day of the month in UTC.
	Month       time.Time `gorm:"primaryKey"`
	Messages    int64     `gorm:"not null;default:0"`
	Uploads     int64     `gorm:"not null;default:0"`
	WordsStored int64     `gorm:"not null;default:0"`

	UpdatedAt time.Time
}

// Recorder increments and reads monthly counters.
type Recorder interface {
	RecordMessage(ctx context.Context, tenantID string) error
	RecordUpload(ctx context.Context, tenantID string, words int64) error
	MonthlyCount(ctx context.Context, tenantID string) (int64, error)
}

func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// GormRecorder upserts counters atomically in the database.
type GormRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewGormRecorder(db *gorm.DB, logger *zap.Logger) *GormRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormRecorder{db: db, logger: logger}
}

func (r *GormRecorder) RecordMessage(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	counter := Counter{TenantID: tenantID, Month: monthOf(timeNow()), Messages: 1}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{
			"messages":   gorm.Expr("usage_counters.messages + 1"),
			"updated_at": timeNow(),
		}),
	}).Create(&counter).Error
	if err != nil {
		return fmt.Errorf("recording usage: %w", err)
	}
	return nil
}

func (r *GormRecorder) RecordUpload(ctx context.Context, tenantID string, words int64) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	counter := Counter{TenantID: tenantID, Month: monthOf(timeNow()), Uploads: 1, WordsStored: words}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{
			"uploads":      gorm.Expr("usage_counters.uploads + 1"),
			"words_stored": gorm.Expr("usage_counters.words_stored + ?", words),
			"updated_at":   timeNow(),
		}),
	}).Create(&counter).Error
	if err != nil {
		return fmt.Errorf("recording upload: %w", err)
	}
	return nil
}

func (r *GormRecorder) MonthlyCount(ctx context.Context, tenantID string) (int64, error) {
	var counter Counter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND month = ?", tenantID, monthOf(timeNow())).
		First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Messages, nil
}

// TableName keeps the table name stable for the raw upsert expression.
func (Counter) TableName() string { return "usage_counters" }

// MemoryRecorder is an in-memory Recorder for tests and local runs.
type MemoryRecorder struct {
	mu     sync.Mutex
	counts map[string]*memCounts
}

type memCounts struct {
	messages int64
	uploads  int64
	words    int64
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: make(map[string]*memCounts)}
}

func (r *MemoryRecorder) get(tenantID string) *memCounts {
	key := tenantID + "|" + monthOf(timeNow()).Format("2006-01")
	c, ok := r.counts[key]
	if !ok {
		c = &memCounts{}
		r.counts[key] = c
	}
	return c
}

func (r *MemoryRecorder) RecordMessage(_ context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(tenantID).messages++
	return nil
}

func (r *MemoryRecorder) RecordUpload(_ context.Context, tenantID string, words int64) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(tenantID)
	c.uploads++
	c.words += words
	return nil
}

func (r *MemoryRecorder) MonthlyCount(_ context.Context, tenantID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(tenantID).messages, nil
}

// MonthlyUploads is a test helper reporting upload and word counts.
func (r *MemoryRecorder) MonthlyUploads(tenantID string) (uploads, words int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.get(tenantID)
	return c.uploads, c.words
}

package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// GormResolver resolves bot bindings from the relational database.
type GormResolver struct {
	db *gorm.DB
}

// NewGormResolver creates a Resolver backed by GORM.
func NewGormResolver(db *gorm.DB) (*GormResolver, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &GormResolver{db: db}, nil
}

// ResolveBot returns the bot record for id, or ErrUnknownBot.
func (r *GormResolver) ResolveBot(ctx context.Context, id string) (*Bot, error) {
	if id == "" {
		return nil, ErrUnknownBot
	}
	var bot Bot
	err := r.db.WithContext(ctx).First(&bot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownBot
	}
	if err != nil {
		return nil, fmt.Errorf("resolving bot %s: %w", id, err)
	}
	return &bot, nil
}

// MemoryResolver is an in-memory Resolver for tests and single-node demos.
type MemoryResolver struct {
	mu   sync.RWMutex
	bots map[string]*Bot
}

// NewMemoryResolver creates an empty in-memory resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{bots: make(map[string]*Bot)}
}

// Register adds or replaces a bot binding.
func (r *MemoryResolver) Register(bot *Bot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots[bot.ID] = bot
}

// ResolveBot returns the bot record for id, or ErrUnknownBot.
func (r *MemoryResolver) ResolveBot(_ context.Context, id string) (*Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bot, ok := r.bots[id]
	if !ok {
		return nil, ErrUnknownBot
	}
	cp := *bot
	return &cp, nil
}

var (
	_ Resolver = (*GormResolver)(nil)
	_ Resolver = (*MemoryResolver)(nil)
)

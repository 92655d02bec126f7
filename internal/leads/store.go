package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

// ErrMissingTenant rejects persistence without a concrete workspace
// scope. A lead is never written to a shared default bucket.
var ErrMissingTenant = errors.New("lead persistence requires a tenant scope")

// timeNow is swapped in tests.
var timeNow = time.Now

// StoreConfig bounds the stored transcript.
type StoreConfig struct {
	TranscriptMaxTurns int
	TranscriptMaxChars int
}

// PersistParams describes one persistence attempt.
type PersistParams struct {
	BotID        string
	Message      string
	Conversation []Turn
	Signals      Signals
	// IntentPrompt is set when the message answered an explicit
	// lead-capture prompt.
	IntentPrompt string
	// Name and Company, when supplied explicitly, win over the
	// conversation heuristics.
	Name    string
	Company string
	Origin  string
}

// PersistResult reports what the store did.
type PersistResult struct {
	Created bool
	ID      string
}

// Store deduplicates and persists leads per workspace.
type Store struct {
	repo   Repository
	config StoreConfig
	logger *zap.Logger
}

func NewStore(repo Repository, config StoreConfig, logger *zap.Logger) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if config.TranscriptMaxTurns <= 0 {
		config.TranscriptMaxTurns = 12
	}
	if config.TranscriptMaxChars <= 0 {
		config.TranscriptMaxChars = 4000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, config: config, logger: logger}, nil
}

// PersistLeadIfAny upserts a lead when the message carried any signal.
//
// Dedup is by contact value within (tenant, bot): an existing lead with
// the same email, or failing that the same phone, is updated rather
// than duplicated. Persisting the same contact twice yields one row.
func (s *Store) PersistLeadIfAny(ctx context.Context, p PersistParams) (*PersistResult, error) {
	info, err := tenant.FromContext(ctx)
	if err != nil || info.TenantID == "" || isPlaceholderTenant(info.TenantID) {
		return nil, ErrMissingTenant
	}

	if !p.Signals.Any() && p.IntentPrompt == "" {
		return &PersistResult{Created: false}, nil
	}

	existing, err := s.lookup(ctx, info.TenantID, p)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lead lookup: %w", err)
	}

	transcript := EncodeTranscript(TruncateTranscript(
		p.Conversation, s.config.TranscriptMaxTurns, s.config.TranscriptMaxChars))
	now := timeNow()

	if existing != nil {
		s.merge(existing, p, transcript, now)
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("updating lead: %w", err)
		}
		recordPersist("updated")
		return &PersistResult{Created: false, ID: existing.ID}, nil
	}

	lead := s.build(info.TenantID, p, transcript, now)
	if err := s.repo.Insert(ctx, lead); err != nil {
		return nil, fmt.Errorf("inserting lead: %w", err)
	}
	recordPersist("created")
	return &PersistResult{Created: true, ID: lead.ID}, nil
}

// lookup finds an existing lead by email first, then phone. The two
// contact values are never matched simultaneously; a phone-only message
// does not merge into an email-only lead.
func (s *Store) lookup(ctx context.Context, tenantID string, p PersistParams) (*Lead, error) {
	if p.Signals.Email != "" {
		lead, err := s.repo.FindByEmail(ctx, tenantID, p.BotID, p.Signals.Email)
		if err == nil {
			return lead, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	if p.Signals.Phone != "" {
		return s.repo.FindByPhone(ctx, tenantID, p.BotID, p.Signals.Phone)
	}
	return nil, ErrNotFound
}

func (s *Store) merge(lead *Lead, p PersistParams, transcript string, now time.Time) {
	lead.LastMessage = p.Message
	if transcript != "" {
		lead.Transcript = transcript
	}
	if p.Signals.Email != "" {
		lead.Email = p.Signals.Email
	}
	// Preserve a stored phone when the new message has none.
	if p.Signals.Phone != "" {
		lead.Phone = p.Signals.Phone
	}
	if lead.Name == "" {
		lead.Name = s.resolveName(p)
	}
	if lead.Company == "" {
		lead.Company = s.resolveCompany(p)
	}
	if kw := joinKeywords(p.Signals.IntentKeywords); kw != "" {
		lead.IntentKeywords = kw
	}
	if p.Signals.FollowUpRequest {
		lead.FollowUp = true
	}
	if p.IntentPrompt != "" {
		lead.IntentPrompt = p.IntentPrompt
	}
	if lead.Status == StatusIncomplete && lead.HasContact() {
		lead.Status = StatusNew
	}
	lead.UpdatedAt = now
}

func (s *Store) build(tenantID string, p PersistParams, transcript string, now time.Time) *Lead {
	lead := &Lead{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		SourceBotID:    p.BotID,
		Email:          p.Signals.Email,
		Phone:          p.Signals.Phone,
		Name:           s.resolveName(p),
		Company:        s.resolveCompany(p),
		IntentKeywords: joinKeywords(p.Signals.IntentKeywords),
		FollowUp:       p.Signals.FollowUpRequest,
		IntentPrompt:   p.IntentPrompt,
		LastMessage:    p.Message,
		Transcript:     transcript,
		Origin:         p.Origin,
		Status:         StatusIncomplete,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if lead.Origin == "" {
		lead.Origin = OriginDemo
	}
	if lead.HasContact() {
		lead.Status = StatusNew
	}
	return lead
}

func (s *Store) resolveName(p PersistParams) string {
	if p.Name != "" {
		return p.Name
	}
	return GuessName(p.Message)
}

func (s *Store) resolveCompany(p PersistParams) string {
	if p.Company != "" {
		return p.Company
	}
	return GuessCompany(p.Message)
}

func joinKeywords(kw []string) string {
	return strings.Join(kw, ",")
}

func isPlaceholderTenant(id string) bool {
	switch strings.ToLower(id) {
	case "default", "placeholder", "unknown", "none":
		return true
	}
	return false
}

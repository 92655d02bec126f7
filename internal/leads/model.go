// Package leads captures prospective contacts from conversation text.
//
// Extraction is a pure function over the message text; persistence runs
// off the request path on a background dispatcher and deduplicates by
// contact value within a workspace.
package leads

import (
	"time"
)

// Lead statuses, in rough lifecycle order. Only incomplete -> new is
// advanced automatically; the rest are operator transitions.
const (
	StatusIncomplete = "incomplete"
	StatusNew        = "new"
	StatusQualified  = "qualified"
	StatusContacted  = "contacted"
	StatusDiscarded  = "discarded"
)

// Lead origins.
const (
	OriginDemo       = "demo"
	OriginSubscriber = "subscriber"
)

// Turn is one message of a conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Lead is a captured prospective contact, scoped to a workspace.
type Lead struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	TenantID    string `gorm:"not null;index:idx_leads_tenant"`
	SourceBotID string `gorm:"index:idx_leads_tenant"`

	Email   string `gorm:"index"`
	Phone   string
	Name    string
	Company string

	// IntentKeywords holds matched vocabulary terms, comma separated.
	IntentKeywords string
	FollowUp       bool
	IntentPrompt   string

	LastMessage string `gorm:"type:text"`
	// Transcript is the truncated conversation window, JSON encoded.
	Transcript string `gorm:"type:text"`

	Status string `gorm:"not null;default:incomplete;index"`
	Origin string `gorm:"not null;default:demo"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasContact reports whether the lead carries a direct contact value.
func (l *Lead) HasContact() bool {
	return l.Email != "" || l.Phone != ""
}

package tenant

import (
	"context"
	"strings"
	"time"
)

// Bot is a registered chat widget bound to a workspace.
//
// A bot is the public face of a workspace's knowledge base: end users talk
// to a bot, and the bot's binding resolves which workspace scopes every
// retrieval and lead write. Customization fields are gated by the
// workspace's subscription tier at read time, not at write time.
type Bot struct {
	ID             string `gorm:"primaryKey;size:64" json:"id"`
	TenantID       string `gorm:"index;not null;size:64" json:"tenant_id"`
	OwnerUserID    string `gorm:"size:64" json:"owner_user_id"`
	Name           string `gorm:"size:128" json:"name"`
	WelcomeMessage string `gorm:"size:512" json:"welcome_message"`
	AccentColor    string `gorm:"size:16" json:"accent_color"`
	LogoURL        string `gorm:"size:512" json:"logo_url"`
	Theme          string `gorm:"size:32" json:"theme"`
	CustomCSS      string `json:"custom_css"`

	// Public marks a demo bot that serves unauthenticated traffic.
	Public bool `json:"public"`

	// AllowedDomains is a comma-separated list of origins permitted to
	// embed this bot's widget.
	AllowedDomains string `gorm:"size:1024" json:"allowed_domains"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DomainAllowed reports whether origin matches one of the bot's
// registered widget domains. Comparison is by host, case-insensitive.
func (b *Bot) DomainAllowed(origin string) bool {
	// A bot with no registered domains accepts any origin. Tightening
	// happens when the owner configures the list.
	if strings.TrimSpace(b.AllowedDomains) == "" {
		return true
	}
	host := strings.ToLower(strings.TrimSpace(origin))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	for _, d := range strings.Split(b.AllowedDomains, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && d == host {
			return true
		}
	}
	return false
}

// Resolver maps a bot ID to its workspace binding.
//
// The binding is the only source of workspace identity for widget
// traffic. Implementations must never derive the workspace from
// request content.
type Resolver interface {
	// ResolveBot returns the bot record for id, or ErrUnknownBot.
	ResolveBot(ctx context.Context, id string) (*Bot, error)
}

package subscription

import (
	"math"
	"time"
)

// Subscription statuses, in evaluation priority order.
const (
	StatusNone     = "none"
	StatusActive   = "active"
	StatusTrial    = "trial"
	StatusEligible = "eligible"
	StatusExpired  = "expired"
)

// Profile is a workspace's billing record.
type Profile struct {
	ID       string `gorm:"primaryKey;type:uuid"`
	TenantID string `gorm:"uniqueIndex;not null"`

	SubscriptionStatus string `gorm:"default:none"`
	SubscriptionTier   string `gorm:"default:free"`

	SubscriptionEndsAt *time.Time
	TrialEndsAt        *time.Time
	HasUsedTrial       bool
	// BillingCustomerID is the payment-provider customer reference.
	BillingCustomerID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Access is the computed access state.
type Access struct {
	Status        string   `json:"status"`
	Tier          string   `json:"tier"`
	HasAccess     bool     `json:"hasAccess"`
	DaysRemaining int      `json:"daysRemaining"`
	Features      []string `json:"features"`
}

// accessRule is one branch of the access state machine.
type accessRule struct {
	name    string
	matches func(p *Profile, now time.Time) bool
	result  func(p *Profile, now time.Time) Access
}

// accessRules is evaluated top to bottom; the first match wins. The
// slice order is the priority order: an expired trial never re-grants
// eligibility, and a lapsed paid subscription never becomes a trial.
var accessRules = []accessRule{
	{
		name: StatusActive,
		matches: func(p *Profile, now time.Time) bool {
			return p.SubscriptionStatus == StatusActive &&
				p.SubscriptionEndsAt != nil && p.SubscriptionEndsAt.After(now)
		},
		result: func(p *Profile, now time.Time) Access {
			tier := NormalizeTier(p.SubscriptionTier)
			return Access{
				Status:        StatusActive,
				Tier:          tier,
				HasAccess:     true,
				DaysRemaining: daysUntil(now, *p.SubscriptionEndsAt),
				Features:      FeaturesForTier(tier),
			}
		},
	},
	{
		// A trial needs both the status and an unexpired end date.
		name: StatusTrial,
		matches: func(p *Profile, now time.Time) bool {
			return p.SubscriptionStatus == StatusTrial &&
				p.TrialEndsAt != nil && p.TrialEndsAt.After(now)
		},
		result: func(p *Profile, now time.Time) Access {
			return Access{
				Status:        StatusTrial,
				Tier:          TierUltra,
				HasAccess:     true,
				DaysRemaining: daysUntil(now, *p.TrialEndsAt),
				Features:      FeaturesForTier(TierUltra),
			}
		},
	},
	{
		name: StatusEligible,
		matches: func(p *Profile, _ time.Time) bool {
			return !p.HasUsedTrial && p.BillingCustomerID == "" && p.TrialEndsAt == nil
		},
		result: func(*Profile, time.Time) Access {
			return Access{
				Status:   StatusEligible,
				Tier:     TierFree,
				Features: FeaturesForTier(TierFree),
			}
		},
	},
	{
		name: StatusExpired,
		matches: func(p *Profile, _ time.Time) bool {
			return p.HasUsedTrial || p.TrialEndsAt != nil ||
				p.SubscriptionStatus == StatusTrial || p.SubscriptionStatus == StatusActive
		},
		result: func(*Profile, time.Time) Access {
			return Access{
				Status:   StatusExpired,
				Tier:     TierFree,
				Features: FeaturesForTier(TierFree),
			}
		},
	},
	{
		name:    StatusNone,
		matches: func(*Profile, time.Time) bool { return true },
		result: func(*Profile, time.Time) Access {
			return Access{
				Status:    StatusNone,
				Tier:      TierFree,
				HasAccess: true,
				Features:  FeaturesForTier(TierFree),
			}
		},
	},
}

// CalculateAccess evaluates the access state machine against the rule
// table above.
func CalculateAccess(profile *Profile, now time.Time) Access {
	if profile == nil {
		// Unknown profile never blocks the free tier.
		return Access{
			Status:    StatusNone,
			Tier:      TierFree,
			HasAccess: true,
			Features:  FeaturesForTier(TierFree),
		}
	}
	for _, rule := range accessRules {
		if rule.matches(profile, now) {
			return rule.result(profile, now)
		}
	}
	// Unreachable: the last rule always matches.
	return Access{Status: StatusNone, Tier: TierFree, HasAccess: true, Features: FeaturesForTier(TierFree)}
}

// daysUntil rounds up so a subscription ending in one hour still shows
// one day remaining.
func daysUntil(now, end time.Time) int {
	if !end.After(now) {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

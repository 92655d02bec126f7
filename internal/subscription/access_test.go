package subscription

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func future(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func past(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func TestCalculateAccess_NilProfile(t *testing.T) {
	got := CalculateAccess(nil, testNow)
	if got.Status != StatusNone {
		t.Errorf("status = %q, want none", got.Status)
	}
	if got.Tier != TierFree {
		t.Errorf("tier = %q, want free", got.Tier)
	}
	if !got.HasAccess {
		t.Error("nil profile must not block free-tier access")
	}
}

func TestCalculateAccess_ActivePaid(t *testing.T) {
	got := CalculateAccess(&Profile{
		SubscriptionStatus: StatusActive,
		SubscriptionTier:   TierPro,
		SubscriptionEndsAt: future(10*24*time.Hour + time.Hour),
	}, testNow)

	if got.Status != StatusActive || got.Tier != TierPro || !got.HasAccess {
		t.Errorf("got %+v, want active pro with access", got)
	}
	// Ceiling: 10 days and one hour rounds up to 11.
	if got.DaysRemaining != 11 {
		t.Errorf("daysRemaining = %d, want 11", got.DaysRemaining)
	}
}

func TestCalculateAccess_ActivePaidLapsed(t *testing.T) {
	got := CalculateAccess(&Profile{
		SubscriptionStatus: StatusActive,
		SubscriptionTier:   TierPro,
		SubscriptionEndsAt: past(24 * time.Hour),
		HasUsedTrial:       true,
	}, testNow)

	if got.Status != StatusExpired {
		t.Errorf("status = %q, want expired (lapsed paid never becomes trial)", got.Status)
	}
	if got.HasAccess {
		t.Error("lapsed subscription should not retain access")
	}
}

func TestCalculateAccess_Trial(t *testing.T) {
	t.Run("both conditions met", func(t *testing.T) {
		got := CalculateAccess(&Profile{
			SubscriptionStatus: StatusTrial,
			TrialEndsAt:        future(3 * 24 * time.Hour),
			HasUsedTrial:       true,
		}, testNow)
		if got.Status != StatusTrial || !got.HasAccess {
			t.Errorf("got %+v, want active trial", got)
		}
		if got.Tier != TierUltra {
			t.Errorf("tier = %q, want ultra (trial grants top tier)", got.Tier)
		}
	})

	t.Run("status alone is not enough", func(t *testing.T) {
		got := CalculateAccess(&Profile{
			SubscriptionStatus: StatusTrial,
			TrialEndsAt:        past(time.Hour),
			HasUsedTrial:       true,
		}, testNow)
		if got.Status != StatusExpired {
			t.Errorf("status = %q, want expired (trial needs future end date)", got.Status)
		}
	})

	t.Run("end date alone is not enough", func(t *testing.T) {
		got := CalculateAccess(&Profile{
			SubscriptionStatus: StatusNone,
			TrialEndsAt:        future(time.Hour),
		}, testNow)
		if got.Status == StatusTrial {
			t.Error("trial status requires subscription_status == trial")
		}
	})
}

func TestCalculateAccess_Eligible(t *testing.T) {
	t.Run("fresh profile", func(t *testing.T) {
		got := CalculateAccess(&Profile{SubscriptionStatus: StatusNone}, testNow)
		if got.Status != StatusEligible {
			t.Errorf("status = %q, want eligible", got.Status)
		}
	})

	t.Run("expired trial never re-grants eligible", func(t *testing.T) {
		got := CalculateAccess(&Profile{
			SubscriptionStatus: StatusTrial,
			TrialEndsAt:        past(24 * time.Hour),
			HasUsedTrial:       true,
		}, testNow)
		if got.Status != StatusExpired {
			t.Errorf("status = %q, want expired", got.Status)
		}
	})

	t.Run("billing customer on file blocks eligibility", func(t *testing.T) {
		got := CalculateAccess(&Profile{
			SubscriptionStatus: StatusNone,
			BillingCustomerID:  "cus_123",
		}, testNow)
		if got.Status == StatusEligible {
			t.Error("existing billing customer must not be eligible for a new trial")
		}
	})

	t.Run("used trial blocks eligibility even without dates", func(t *testing.T) {
		got := CalculateAccess(&Profile{
			SubscriptionStatus: StatusNone,
			HasUsedTrial:       true,
		}, testNow)
		if got.Status != StatusExpired {
			t.Errorf("status = %q, want expired", got.Status)
		}
	})
}

func TestCalculateAccess_DaysRemainingCeiling(t *testing.T) {
	got := CalculateAccess(&Profile{
		SubscriptionStatus: StatusActive,
		SubscriptionTier:   TierBasic,
		SubscriptionEndsAt: future(time.Hour),
	}, testNow)
	if got.DaysRemaining != 1 {
		t.Errorf("daysRemaining = %d, want 1 (one hour rounds up)", got.DaysRemaining)
	}
}

func TestFeaturesForTier_Monotonic(t *testing.T) {
	order := []string{TierFree, TierBasic, TierPro, TierUltra}
	for i := 1; i < len(order); i++ {
		lower := FeaturesForTier(order[i-1])
		higher := FeaturesForTier(order[i])
		if len(higher) < len(lower) {
			t.Fatalf("%s has fewer features than %s", order[i], order[i-1])
		}
		for _, f := range lower {
			if !HasFeature(order[i], f) {
				t.Errorf("%s missing feature %q present in %s", order[i], f, order[i-1])
			}
		}
	}
}

func TestFeaturesForTier_IndependentOfStatus(t *testing.T) {
	// A trialing workspace gets ultra features; an expired one gets
	// free features. The table itself only keys on tier.
	if !HasFeature(TierUltra, FeatureCustomCSS) {
		t.Error("ultra should include custom CSS")
	}
	if HasFeature(TierFree, FeatureBotName) {
		t.Error("free should not include name customization")
	}
	if HasFeature(TierBasic, FeatureAccentColor) {
		t.Error("basic should not include accent color")
	}
}

func TestNormalizeTier(t *testing.T) {
	if NormalizeTier("nonsense") != TierFree {
		t.Error("unknown tier should normalize to free")
	}
	if NormalizeTier(TierPro) != TierPro {
		t.Error("known tier should pass through")
	}
}

func TestMonthlyMessageQuota(t *testing.T) {
	if MonthlyMessageQuota(TierFree) >= MonthlyMessageQuota(TierBasic) {
		t.Error("quotas should grow with tier")
	}
	if MonthlyMessageQuota("nonsense") != MonthlyMessageQuota(TierFree) {
		t.Error("unknown tier should get the free quota")
	}
	if MonthlyMessageQuota(TierUltra) != 20000 {
		t.Errorf("ultra quota = %d, want 20000", MonthlyMessageQuota(TierUltra))
	}
}

func TestCalculateAccess_RulePrecedence(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name    string
		profile *Profile
		want    string
	}{
		{
			name: "active wins over trial history",
			profile: &Profile{
				SubscriptionStatus: StatusActive,
				SubscriptionTier:   TierPro,
				SubscriptionEndsAt: &future,
				HasUsedTrial:       true,
				TrialEndsAt:        &past,
			},
			want: StatusActive,
		},
		{
			name: "live trial wins over used-trial expiry",
			profile: &Profile{
				SubscriptionStatus: StatusTrial,
				TrialEndsAt:        &future,
				HasUsedTrial:       true,
			},
			want: StatusTrial,
		},
		{
			name: "used trial is never eligible again",
			profile: &Profile{
				HasUsedTrial: true,
			},
			want: StatusExpired,
		},
		{
			name: "lapsed paid is expired, not eligible",
			profile: &Profile{
				SubscriptionStatus: StatusActive,
				SubscriptionTier:   TierPro,
				SubscriptionEndsAt: &past,
			},
			want: StatusExpired,
		},
		{
			name:    "fresh profile is eligible",
			profile: &Profile{},
			want:    StatusEligible,
		},
		{
			name: "billing customer without trial history is none",
			profile: &Profile{
				BillingCustomerID: "cus_123",
			},
			want: StatusNone,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateAccess(tc.profile, now)
			if got.Status != tc.want {
				t.Errorf("status = %q, want %q", got.Status, tc.want)
			}
		})
	}
}

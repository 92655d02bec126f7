// Package subscription computes a workspace's access state and feature
// set from its billing profile. The calculation is a pure function over
// the profile and the current time; nothing here touches the network.
package subscription

// Tiers, lowest to highest. Each tier's feature set is a superset of
// the one below it.
const (
	TierFree  = "free"
	TierBasic = "basic"
	TierPro   = "pro"
	TierUltra = "ultra"
)

// Feature flags for widget customization.
const (
	FeatureBotName        = "bot_name"
	FeatureWelcomeMessage = "welcome_message"
	FeatureAccentColor    = "accent_color"
	FeatureLogo           = "logo"
	FeatureTheme          = "theme"
	FeatureCustomCSS      = "custom_css"
)

// tierFeatures is keyed by tier and independent of subscription status.
var tierFeatures = map[string][]string{
	TierFree: {},
	TierBasic: {
		FeatureBotName, FeatureWelcomeMessage,
	},
	TierPro: {
		FeatureBotName, FeatureWelcomeMessage, FeatureAccentColor, FeatureLogo,
	},
	TierUltra: {
		FeatureBotName, FeatureWelcomeMessage, FeatureAccentColor,
		FeatureLogo, FeatureTheme, FeatureCustomCSS,
	},
}

// FeaturesForTier returns the feature flags for a tier. Unknown tiers
// get the free set.
func FeaturesForTier(tier string) []string {
	features, ok := tierFeatures[tier]
	if !ok {
		features = tierFeatures[TierFree]
	}
	out := make([]string, len(features))
	copy(out, features)
	return out
}

// HasFeature reports whether a tier includes a feature flag.
func HasFeature(tier, feature string) bool {
	for _, f := range FeaturesForTier(tier) {
		if f == feature {
			return true
		}
	}
	return false
}

// tierQuotas is the monthly message allowance per tier.
var tierQuotas = map[string]int64{
	TierFree:  100,
	TierBasic: 1000,
	TierPro:   5000,
	TierUltra: 20000,
}

// MonthlyMessageQuota returns the tier's monthly message allowance.
// Unknown tiers get the free allowance.
func MonthlyMessageQuota(tier string) int64 {
	quota, ok := tierQuotas[tier]
	if !ok {
		return tierQuotas[TierFree]
	}
	return quota
}

// NormalizeTier maps stored tier values onto a known tier.
func NormalizeTier(tier string) string {
	switch tier {
	case TierBasic, TierPro, TierUltra:
		return tier
	default:
		return TierFree
	}
}

package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/subscription"
)

// widgetConfig is the public widget bootstrap payload. Only fields the
// workspace's tier unlocks are populated; everything else stays at the
// product default so a downgraded tenant cannot keep paid styling.
type widgetConfig struct {
	BotID          string `json:"botId"`
	Tier           string `json:"tier"`
	ChatbotName    string `json:"chatbotName"`
	WelcomeMessage string `json:"welcomeMessage"`
	AccentColor    string `json:"accentColor"`
	LogoURL        string `json:"logoUrl,omitempty"`
	Theme          string `json:"theme,omitempty"`
	CustomCSS      string `json:"customCss,omitempty"`
}

const (
	defaultBotName     = "TruLyBot"
	defaultWelcome     = "Hi! How can I help you today?"
	defaultAccentColor = "#2563eb"
)

// handleWidgetConfig serves the embed widget's bootstrap config. The
// endpoint is public; it is protected by the bot's allowed-domain list
// and returns only presentation fields, never workspace internals.
func (s *Server) handleWidgetConfig(c echo.Context) error {
	botID := c.Param("botID")
	if botID == "" {
		return errorJSON(c, http.StatusBadRequest, CodeBadRequest, "bot id is required")
	}

	bot, err := s.deps.Bots.ResolveBot(c.Request().Context(), botID)
	if err != nil {
		status, code := mapError(err)
		return errorJSON(c, status, code, "unknown bot")
	}
	if !bot.Public {
		return errorJSON(c, http.StatusForbidden, CodeForbidden, "bot is not public")
	}
	if origin := c.Request().Header.Get("Origin"); !bot.DomainAllowed(origin) {
		return errorJSON(c, http.StatusForbidden, CodeForbidden, "origin not allowed")
	}

	// Only the computed payload is cached. The public and origin checks
	// above run on every request so a cached entry never serves an
	// origin the workspace has not registered.
	if cached, ok := s.widgetCache.Get(botID); ok {
		return c.JSON(http.StatusOK, cached)
	}

	access, err := s.deps.Access.AccessForTenant(c.Request().Context(), bot.TenantID)
	if err != nil {
		s.logger.Error("widget access lookup failed",
			zap.String("bot_id", botID),
			zap.Error(err),
		)
		return errorJSON(c, http.StatusInternalServerError, CodeInternal, "access check failed")
	}

	cfg := &widgetConfig{
		BotID:          botID,
		Tier:           access.Tier,
		ChatbotName:    defaultBotName,
		WelcomeMessage: defaultWelcome,
		AccentColor:    defaultAccentColor,
	}
	if subscription.HasFeature(access.Tier, subscription.FeatureBotName) && bot.Name != "" {
		cfg.ChatbotName = bot.Name
	}
	if subscription.HasFeature(access.Tier, subscription.FeatureWelcomeMessage) && bot.WelcomeMessage != "" {
		cfg.WelcomeMessage = bot.WelcomeMessage
	}
	if subscription.HasFeature(access.Tier, subscription.FeatureAccentColor) && bot.AccentColor != "" {
		cfg.AccentColor = bot.AccentColor
	}
	if subscription.HasFeature(access.Tier, subscription.FeatureLogo) {
		cfg.LogoURL = bot.LogoURL
	}
	if subscription.HasFeature(access.Tier, subscription.FeatureTheme) {
		cfg.Theme = bot.Theme
	}
	if subscription.HasFeature(access.Tier, subscription.FeatureCustomCSS) {
		cfg.CustomCSS = bot.CustomCSS
	}

	s.widgetCache.Add(botID, cfg)
	return c.JSON(http.StatusOK, cfg)
}

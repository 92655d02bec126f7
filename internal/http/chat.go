package http

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/completion"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/leads"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/ratelimit"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/retrieval"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/subscription"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
)

// buttonsMarker separates the streamed answer text from the optional
// suggested-action JSON suffix.
const buttonsMarker = "__BUTTONS__"

// ChatMessage is one turn of the submitted conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	BotID    string        `json:"botId"`
	Messages []ChatMessage `json:"messages"`
}

// Button is one suggested action appended after the answer text.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

func (r *ChatRequest) validate() error {
	if r.BotID == "" {
		return fmt.Errorf("botId is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for _, m := range r.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("invalid message role %q", m.Role)
		}
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != "user" || last.Content == "" {
		return fmt.Errorf("last message must be a non-empty user message")
	}
	return nil
}

// handleChat answers one chat message. The response is streamed plain
// text, optionally followed by the buttons marker and a JSON array of
// suggested actions.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, CodeBadRequest, "malformed request body")
	}
	if err := req.validate(); err != nil {
		return errorJSON(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	}

	id, err := s.authenticate(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, CodeUnauthorized, "invalid credentials")
	}

	bot, err := s.deps.Bots.ResolveBot(c.Request().Context(), req.BotID)
	if err != nil {
		status, code := mapError(err)
		return errorJSON(c, status, code, "unknown bot")
	}
	// Anonymous traffic is only served by public bots from allowed
	// origins.
	if id.Anonymous {
		if !bot.Public {
			return errorJSON(c, http.StatusForbidden, CodeForbidden, "bot is not public")
		}
		if origin := c.Request().Header.Get("Origin"); !bot.DomainAllowed(origin) {
			return errorJSON(c, http.StatusForbidden, CodeForbidden, "origin not allowed")
		}
	}

	decision, err := s.deps.Limiter.Check(c.Request().Context(), ratelimit.Request{
		UserID: id.UserID,
		BotID:  req.BotID,
		IP:     clientIP(c),
	})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, CodeInternal, "rate limit check failed")
	}
	setRateLimitHeaders(c, decision)
	if !decision.Allowed {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.RetryAfter)))
		return errorJSON(c, http.StatusTooManyRequests, CodeRateLimited,
			fmt.Sprintf("rate limit exceeded (%s)", decision.Reason))
	}

	access, err := s.deps.Access.AccessForTenant(c.Request().Context(), bot.TenantID)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, CodeInternal, "access check failed")
	}

	scope := &tenant.Info{TenantID: bot.TenantID, UserID: id.UserID, BotID: req.BotID}
	ctx := tenant.NewContext(c.Request().Context(), scope)

	if s.deps.Usage != nil {
		count, err := s.deps.Usage.MonthlyCount(ctx, bot.TenantID)
		if err != nil {
			s.logger.Warn("usage lookup failed", zap.Error(err))
		} else if count >= subscription.MonthlyMessageQuota(access.Tier) {
			return errorJSON(c, http.StatusForbidden, CodePaymentRequired,
				"monthly message quota exceeded")
		}
		if err := s.deps.Usage.RecordMessage(ctx, bot.TenantID); err != nil {
			s.logger.Warn("usage recording failed", zap.Error(err))
		}
	}

	lastMessage := req.Messages[len(req.Messages)-1].Content
	history := make([]completion.Message, 0, len(req.Messages)-1)
	for _, m := range req.Messages[:len(req.Messages)-1] {
		history = append(history, completion.Message{Role: m.Role, Content: m.Content})
	}

	// A workspace without access still gets an answer, just never from
	// its knowledge base. The response then carries upgrade buttons.
	answer, err := s.deps.Orchestrator.Answer(ctx, retrieval.Query{
		Message:       lastMessage,
		History:       history,
		Demo:          id.Anonymous,
		FactSheetOnly: !access.HasAccess,
	})
	if err != nil {
		s.logger.Error("chat answer failed",
			zap.String("tenant_id", bot.TenantID),
			zap.Error(err),
		)
		return errorJSON(c, http.StatusBadGateway, CodeInternal, "answer generation failed")
	}

	// Lead capture runs off the request path; failures never affect
	// the response.
	if s.deps.Dispatcher != nil {
		turns := make([]leads.Turn, len(req.Messages))
		for i, m := range req.Messages {
			turns[i] = leads.Turn{Role: m.Role, Content: m.Content}
		}
		origin := leads.OriginSubscriber
		if id.Anonymous {
			origin = leads.OriginDemo
		}
		s.deps.Dispatcher.Enqueue(ctx, leads.PersistParams{
			BotID:        req.BotID,
			Message:      lastMessage,
			Conversation: turns,
			Signals:      leads.Extract(lastMessage),
			Origin:       origin,
		})
	}

	return s.streamAnswer(c, answer, access)
}

// streamAnswer writes the answer as chunked plain text, flushing as it
// goes, then the optional buttons suffix.
func (s *Server) streamAnswer(c echo.Context, answer *retrieval.Answer, access subscription.Access) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	res.WriteHeader(http.StatusOK)

	const flushEvery = 512
	text := answer.Text
	for len(text) > 0 {
		n := flushEvery
		if n > len(text) {
			n = len(text)
		}
		if _, err := res.Write([]byte(text[:n])); err != nil {
			return err
		}
		res.Flush()
		text = text[n:]
	}

	buttons := suggestedButtons(answer, access)
	if len(buttons) > 0 {
		payload, err := json.Marshal(buttons)
		if err == nil {
			if _, err := res.Write([]byte(buttonsMarker)); err != nil {
				return err
			}
			if _, err := res.Write(payload); err != nil {
				return err
			}
			res.Flush()
		}
	}
	return nil
}

// suggestedButtons picks follow-up actions: trial signup for eligible
// workspaces answering from the fact sheet, nothing for grounded
// answers.
func suggestedButtons(answer *retrieval.Answer, access subscription.Access) []Button {
	if answer.Grounded {
		return nil
	}
	switch access.Status {
	case subscription.StatusEligible:
		return []Button{{Text: "Start your free trial", URL: "/start-trial", Type: "primary"}}
	case subscription.StatusExpired:
		return []Button{{Text: "View plans", URL: "/pricing", Type: "primary"}}
	}
	return nil
}

// retryAfterSeconds rounds the wait up to whole seconds. A rejected
// request always waits at least one second; truncation would tell the
// client to retry immediately.
func retryAfterSeconds(wait time.Duration) int {
	secs := int(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func setRateLimitHeaders(c echo.Context, d ratelimit.Decision) {
	if d.Limit == 0 {
		return
	}
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

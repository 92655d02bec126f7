package fallback

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/completion"
)

// maxWindowTurns bounds how much recent conversation is forwarded to the
// completion call.
const maxWindowTurns = 6

// Generator produces answers strictly from the canonical fact sheet.
type Generator struct {
	client completion.Client
	logger *zap.Logger
}

// NewGenerator creates a fallback answer generator.
func NewGenerator(client completion.Client, logger *zap.Logger) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}, nil
}

// GeneralAnswer answers message from the static fact sheet.
//
// window optionally carries recent conversation turns for continuity;
// only the most recent turns are forwarded. The generated text is scanned
// for disallowed capability claims and patched with a clarification when
// one appears.
func (g *Generator) GeneralAnswer(ctx context.Context, message string, mode Mode, window []completion.Message) (string, error) {
	if message == "" {
		return "", fmt.Errorf("message cannot be empty")
	}

	messages := make([]completion.Message, 0, maxWindowTurns+1)
	if len(window) > maxWindowTurns {
		window = window[len(window)-maxWindowTurns:]
	}
	messages = append(messages, window...)
	messages = append(messages, completion.Message{Role: "user", Content: message})

	text, err := g.client.Complete(ctx, completion.Request{
		System:      systemPrompt(mode),
		Messages:    messages,
		MaxTokens:   256,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("generating fallback answer: %w", err)
	}

	patched, hit := patchDisallowedClaims(text)
	if hit != "" {
		g.logger.Warn("patched disallowed claim in fallback answer",
			zap.String("keyword", hit),
			zap.String("mode", string(mode)),
		)
	}
	return patched, nil
}

// systemPrompt builds the fact-sheet prompt for the given mode.
func systemPrompt(mode Mode) string {
	var b strings.Builder
	b.WriteString("You are the TruLyBot assistant (fact sheet ")
	b.WriteString(factSheetVersion)
	b.WriteString(").\n\n")
	b.WriteString("Answer ONLY from the fact sheet below. ")
	switch mode {
	case ModeDemo:
		b.WriteString("You are talking to a visitor trying the public demo; you may describe the product and invite them to sign up.")
	default:
		b.WriteString("The workspace's own knowledge base had no answer; say so briefly before answering from the fact sheet, and never claim to know workspace-specific details.")
	}
	b.WriteString("\n\n")
	b.WriteString(factSheet)
	return b.String()
}

// patchDisallowedClaims appends the corrective clarification when the
// text mentions a capability the product does not have. Returns the
// patched text and the first keyword hit ("" when clean).
func patchDisallowedClaims(text string) (string, string) {
	lower := strings.ToLower(text)
	for _, keyword := range disallowedClaims {
		if strings.Contains(lower, keyword) {
			return text + clarification, keyword
		}
	}
	return text, ""
}

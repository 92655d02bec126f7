// Package retrieval implements the retrieval-and-answer pipeline.
//
// A chat message is embedded, searched against the workspace's chunks,
// and answered either grounded in retrieved content or from the static
// fact sheet when retrieval is insufficient. Upstream embedding or
// completion failures degrade to the fallback voice; they never fail the
// chat request unless the fallback itself also fails.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/completion"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/embeddings"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/fallback"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/vectorstore"
)

var tracer = otel.Tracer("trulybot.retrieval")

// Config tunes the orchestrator.
type Config struct {
	// MatchThreshold is the minimum similarity score for a chunk to
	// count as relevant.
	MatchThreshold float32

	// TopK is the number of chunks requested from similarity search.
	TopK int
}

// Query is one chat message to answer.
type Query struct {
	// Message is the user's message.
	Message string

	// History is the recent conversation window, oldest first.
	History []completion.Message

	// Demo marks unauthenticated traffic on a public bot; insufficient
	// retrieval then uses the demo fallback voice.
	Demo bool

	// FactSheetOnly skips retrieval entirely. Set when the workspace's
	// subscription does not grant knowledge-base access; the visitor
	// still gets a fact-sheet answer instead of an error.
	FactSheetOnly bool
}

// Answer is the orchestrator's result.
type Answer struct {
	// Text is the answer text.
	Text string

	// Grounded is true when the answer was built from retrieved chunks.
	Grounded bool

	// Sources lists the chunk IDs used for a grounded answer.
	Sources []string
}

// Orchestrator runs embed -> search -> sufficiency -> answer.
type Orchestrator struct {
	embedder  embeddings.Provider
	store     vectorstore.Store
	completer completion.Client
	fallback  *fallback.Generator
	config    Config
	logger    *zap.Logger
}

// NewOrchestrator creates a retrieval orchestrator.
func NewOrchestrator(
	embedder embeddings.Provider,
	store vectorstore.Store,
	completer completion.Client,
	fb *fallback.Generator,
	config Config,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completion client is required")
	}
	if fb == nil {
		return nil, fmt.Errorf("fallback generator is required")
	}
	if config.MatchThreshold <= 0 {
		config.MatchThreshold = 0.7
	}
	if config.TopK <= 0 {
		config.TopK = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		embedder:  embedder,
		store:     store,
		completer: completer,
		fallback:  fb,
		config:    config,
		logger:    logger,
	}, nil
}

// Answer answers a chat message within the workspace scope carried by ctx.
//
// Workspace scope is mandatory: the similarity search is filtered by the
// tenant resolved from the authenticated caller or bot binding, never
// from message content.
func (o *Orchestrator) Answer(ctx context.Context, q Query) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.Answer")
	defer span.End()
	start := time.Now()

	info, err := tenant.FromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if q.Message == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}
	span.SetAttributes(attribute.String("tenant_id", info.TenantID))

	if q.FactSheetOnly {
		answer, err := o.answerFromFactSheet(ctx, q)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		recordAnswer(outcomeLabel(q.Demo, false), time.Since(start))
		span.SetAttributes(attribute.Bool("grounded", false))
		return answer, nil
	}

	matches, retrieveErr := o.retrieve(ctx, q.Message)
	if retrieveErr != nil {
		o.logger.Warn("retrieval failed, answering from fact sheet",
			zap.String("tenant_id", info.TenantID),
			zap.Error(retrieveErr),
		)
	}

	if retrieveErr != nil || len(matches) == 0 {
		answer, err := o.answerFromFactSheet(ctx, q)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		recordAnswer(outcomeLabel(q.Demo, false), time.Since(start))
		span.SetAttributes(attribute.Bool("grounded", false))
		return answer, nil
	}

	text, err := o.completeGrounded(ctx, q, matches)
	if err != nil {
		// Completion failed: degrade to the fact sheet rather than 5xx.
		o.logger.Warn("grounded completion failed, answering from fact sheet",
			zap.String("tenant_id", info.TenantID),
			zap.Error(err),
		)
		answer, fbErr := o.answerFromFactSheet(ctx, q)
		if fbErr != nil {
			span.RecordError(fbErr)
			span.SetStatus(codes.Error, fbErr.Error())
			return nil, fbErr
		}
		recordAnswer(outcomeLabel(q.Demo, false), time.Since(start))
		return answer, nil
	}

	sources := make([]string, len(matches))
	for i, m := range matches {
		sources[i] = m.ChunkID
	}
	recordAnswer("grounded", time.Since(start))
	span.SetAttributes(
		attribute.Bool("grounded", true),
		attribute.Int("sources", len(sources)),
	)
	span.SetStatus(codes.Ok, "success")
	return &Answer{Text: text, Grounded: true, Sources: sources}, nil
}

// retrieve embeds the message and queries the workspace's chunks.
func (o *Orchestrator) retrieve(ctx context.Context, message string) ([]vectorstore.Match, error) {
	embedding, err := o.embedder.EmbedQuery(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	matches, err := o.store.Query(ctx, embedding, o.config.MatchThreshold, o.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	return matches, nil
}

// completeGrounded builds a grounded answer from retrieved chunks.
func (o *Orchestrator) completeGrounded(ctx context.Context, q Query, matches []vectorstore.Match) (string, error) {
	var contextBlock strings.Builder
	for i, m := range matches {
		if i > 0 {
			contextBlock.WriteString("\n---\n")
		}
		contextBlock.WriteString(m.Content)
	}

	system := "You are a customer-support assistant. Answer the user's question " +
		"using ONLY the context below. If the context does not contain the answer, " +
		"say you don't have that information. Keep answers short and factual.\n\n" +
		"Context:\n" + contextBlock.String()

	messages := append(append([]completion.Message{}, q.History...),
		completion.Message{Role: "user", Content: q.Message})

	return o.completer.Complete(ctx, completion.Request{
		System:   system,
		Messages: messages,
	})
}

// answerFromFactSheet produces an ungrounded answer in the right voice.
func (o *Orchestrator) answerFromFactSheet(ctx context.Context, q Query) (*Answer, error) {
	mode := fallback.ModeFallback
	if q.Demo {
		mode = fallback.ModeDemo
	}
	text, err := o.fallback.GeneralAnswer(ctx, q.Message, mode, q.History)
	if err != nil {
		return nil, fmt.Errorf("fallback answer: %w", err)
	}
	return &Answer{Text: text, Grounded: false, Sources: nil}, nil
}

func outcomeLabel(demo, grounded bool) string {
	if grounded {
		return "grounded"
	}
	if demo {
		return "demo"
	}
	return "fallback"
}

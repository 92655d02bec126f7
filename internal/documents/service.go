package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/embeddings"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/usage"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/vectorstore"
)

var tracer = otel.Tracer("trulybot.documents")

// timeNow is swapped in tests.
var timeNow = time.Now

// Service ingests documents: chunk, embed, index, and keep the stored
// text in sync with the vector store.
type Service struct {
	repo     Repository
	store    vectorstore.Store
	embedder embeddings.Provider
	chunker  *Chunker
	usage    usage.Recorder
	logger   *zap.Logger
}

func NewService(
	repo Repository,
	store vectorstore.Store,
	embedder embeddings.Provider,
	chunker *Chunker,
	recorder usage.Recorder,
	logger *zap.Logger,
) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		usage:    recorder,
		logger:   logger,
	}, nil
}

// Upsert ingests a document. An existing document's chunks are deleted
// and recreated so the index never holds stale content alongside new.
func (s *Service) Upsert(ctx context.Context, id, title, content string) (*Document, error) {
	ctx, span := tracer.Start(ctx, "documents.Upsert")
	defer span.End()

	info, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("document content cannot be empty")
	}

	now := timeNow()
	doc := &Document{
		ID:        id,
		TenantID:  info.TenantID,
		UserID:    info.UserID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	} else {
		existing, err := s.repo.Get(ctx, info.TenantID, doc.ID)
		if err == nil {
			doc.CreatedAt = existing.CreatedAt
			if err := s.store.DeleteByDocument(ctx, doc.ID); err != nil {
				return nil, fmt.Errorf("removing stale chunks: %w", err)
			}
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	doc.UpdatedAt = now

	texts := s.chunker.Chunk(content)
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding document: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(texts), len(vectors))
	}

	chunks := make([]vectorstore.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = vectorstore.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, i),
			DocumentID: doc.ID,
			TenantID:   info.TenantID,
			UserID:     info.UserID,
			Content:    text,
			Embedding:  vectors[i],
			Position:   i,
		}
	}
	if _, err := s.store.AddChunks(ctx, chunks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("indexing chunks: %w", err)
	}
	doc.ChunkCount = len(chunks)

	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	// Usage accounting is best effort; a counter failure never fails
	// the upload.
	if s.usage != nil {
		words := int64(len(strings.Fields(content)))
		if err := s.usage.RecordUpload(ctx, info.TenantID, words); err != nil {
			s.logger.Warn("usage recording failed",
				zap.String("tenant_id", info.TenantID),
				zap.Error(err),
			)
		}
	}
	span.SetAttributes(
		attribute.String("document_id", doc.ID),
		attribute.Int("chunks", doc.ChunkCount),
	)
	s.logger.Info("document indexed",
		zap.String("tenant_id", info.TenantID),
		zap.String("document_id", doc.ID),
		zap.Int("chunks", doc.ChunkCount),
	)
	return doc, nil
}

// Delete removes a document and all of its indexed chunks.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "documents.Delete")
	defer span.End()

	info, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, info.TenantID, id); err != nil {
		return err
	}
	if err := s.store.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("removing chunks: %w", err)
	}
	s.logger.Info("document deleted",
		zap.String("tenant_id", info.TenantID),
		zap.String("document_id", id),
	)
	return nil
}

// Get returns one document within the caller's workspace.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, info.TenantID, id)
}

// List returns the workspace's documents.
func (s *Service) List(ctx context.Context) ([]Document, error) {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, info.TenantID)
}

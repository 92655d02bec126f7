package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("trulybot.vectorstore.chromem")

// ChromemConfig holds configuration for the embedded chromem-go store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/trulybot/vectorstore"
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// DefaultCollection is the collection holding all workspace chunks.
	// Default: "workspace_chunks"
	DefaultCollection string

	// VectorSize is the expected embedding dimension.
	// Must match the embedding provider's output dimension.
	// Default: 1536
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/trulybot/vectorstore"
	}
	if c.DefaultCollection == "" {
		c.DefaultCollection = "workspace_chunks"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using chromem-go.
//
// chromem-go is an embeddable vector database with zero third-party
// dependencies: pure Go, no external service, automatic persistence to
// gob files. All workspace chunks share one collection; isolation is by
// payload filtering on tenant_id.
type ChromemStore struct {
	db        *chromem.DB
	config    ChromemConfig
	logger    *zap.Logger
	isolation IsolationMode
}

// NewChromemStore creates a ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	expandedPath, err := expandChromemPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(expandedPath, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
	}

	db, err := chromem.NewPersistentDB(expandedPath, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	store := &ChromemStore{
		db:        db,
		config:    config,
		logger:    logger,
		isolation: NewPayloadIsolation(), // fail-closed default
	}

	logger.Info("chromem store initialized",
		zap.String("path", expandedPath),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", config.VectorSize),
		zap.String("collection", config.DefaultCollection),
	)

	return store, nil
}

// expandChromemPath expands ~ to home directory.
func expandChromemPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// SetIsolationMode overrides the isolation mode. Tests only.
func (s *ChromemStore) SetIsolationMode(mode IsolationMode) {
	s.isolation = mode
}

// noEmbedFunc rejects any attempt to embed inside the store. Chunks and
// queries always arrive pre-embedded from the embedding provider.
func noEmbedFunc(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("store does not embed; embeddings must be precomputed")
}

func (s *ChromemStore) collection() (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(s.config.DefaultCollection, nil, noEmbedFunc)
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", s.config.DefaultCollection, err)
	}
	return col, nil
}

// AddChunks stores pre-embedded chunks in the workspace scope.
func (s *ChromemStore) AddChunks(ctx context.Context, chunks []Chunk) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.AddChunks")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))

	if len(chunks) == 0 {
		return nil, ErrEmptyChunks
	}
	if err := s.isolation.ValidateChunks(ctx, chunks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("validating chunk scope: %w", err)
	}

	col, err := s.collection()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	docs := make([]chromem.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		if ids[i] == "" {
			ids[i] = fmt.Sprintf("chunk_%d_%d", timeNow().UnixNano(), i)
			s.logger.Warn("auto-generated chunk ID - caller should provide explicit IDs",
				zap.String("generated_id", ids[i]),
				zap.Int("index", i),
			)
		}
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %s has no embedding", ids[i])
		}
		docs[i] = chromem.Document{
			ID:        ids[i],
			Content:   c.Content,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				"tenant_id":   c.TenantID,
				"user_id":     c.UserID,
				"document_id": c.DocumentID,
				"position":    fmt.Sprintf("%d", c.Position),
			},
		}
	}

	// Concurrency of 1 since embeddings are precomputed.
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("adding chunks: %w", err)
	}

	ChunksAddedTotal.Add(float64(len(ids)))
	span.SetStatus(codes.Ok, "success")
	s.logger.Debug("added chunks to chromem", zap.Int("count", len(ids)))
	return ids, nil
}

// Query performs tenant-scoped similarity search.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, threshold float32, count int) ([]Match, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.Int("count", count),
		attribute.Float64("threshold", float64(threshold)),
	)
	start := timeNow()
	defer func() { QueryDuration.Observe(time.Since(start).Seconds()) }()

	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding cannot be empty")
	}

	filters, err := s.isolation.InjectFilter(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("injecting workspace filter: %w", err)
	}

	col := s.db.GetCollection(s.config.DefaultCollection, noEmbedFunc)
	if col == nil {
		// No chunks stored yet anywhere: empty result, not an error.
		return []Match{}, nil
	}

	// chromem requires nResults <= document count.
	docCount := col.Count()
	if docCount == 0 {
		return []Match{}, nil
	}
	if count > docCount {
		count = docCount
	}

	results, err := col.QueryEmbedding(ctx, embedding, count, toStringMap(filters), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		// Defensive scope check. The filter already constrains the query;
		// a mismatch here means a store fault, and the result is dropped.
		meta := fromStringMap(r.Metadata)
		if !s.isolation.VerifyResult(ctx, meta) {
			ScopeViolationsTotal.Inc()
			s.logger.Error("dropping out-of-scope search result",
				zap.String("chunk_id", r.ID),
			)
			continue
		}
		matches = append(matches, Match{
			ChunkID:    r.ID,
			Content:    r.Content,
			Score:      r.Similarity,
			DocumentID: r.Metadata["document_id"],
		})
	}

	QueriesTotal.WithLabelValues("chromem").Inc()
	span.SetAttributes(attribute.Int("results_count", len(matches)))
	span.SetStatus(codes.Ok, "success")
	return matches, nil
}

// DeleteChunks removes chunks by ID within the workspace scope.
func (s *ChromemStore) DeleteChunks(ctx context.Context, ids []string) error {
	filters, err := s.isolation.InjectFilter(ctx, nil)
	if err != nil {
		return fmt.Errorf("injecting workspace filter: %w", err)
	}
	col := s.db.GetCollection(s.config.DefaultCollection, noEmbedFunc)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, toStringMap(filters), nil, ids...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteByDocument removes every chunk belonging to a document.
func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentID string) error {
	filters, err := s.isolation.InjectFilter(ctx, map[string]interface{}{
		"document_id": documentID,
	})
	if err != nil {
		return fmt.Errorf("injecting workspace filter: %w", err)
	}
	col := s.db.GetCollection(s.config.DefaultCollection, noEmbedFunc)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, toStringMap(filters), nil); err != nil {
		return fmt.Errorf("deleting document chunks: %w", err)
	}
	return nil
}

// Close is a no-op; chromem persists on write.
func (s *ChromemStore) Close() error { return nil }

func toStringMap(m map[string]interface{}) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func fromStringMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ Store = (*ChromemStore)(nil)

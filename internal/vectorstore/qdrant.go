package vectorstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("trulybot.vectorstore.qdrant")

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334
	Port int

	// CollectionName is the collection holding all workspace chunks.
	// Default: "workspace_chunks"
	CollectionName string

	// VectorSize is the dimensionality of embeddings.
	// Must match the embedding provider's output dimension.
	VectorSize uint64

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum retry count for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff, doubling per retry.
	// Default: 1 second
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int

	// Isolation is the workspace isolation mode.
	// Default: PayloadIsolation for fail-closed security.
	Isolation IsolationMode
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.CollectionName == "" {
		c.CollectionName = "workspace_chunks"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1536
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// IsTransientError reports whether a gRPC error is worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.ResourceExhausted, grpccodes.Aborted:
		return true
	default:
		return false
	}
}

// QdrantStore implements Store using an external Qdrant server over gRPC.
//
// Use this provider for multi-instance deployments where the embedded
// chromem store cannot be shared.
type QdrantStore struct {
	client    *qdrant.Client
	config    QdrantConfig
	isolation IsolationMode
}

// NewQdrantStore creates a QdrantStore and verifies connectivity.
func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if !config.UseTLS {
		fmt.Fprintf(os.Stderr, "WARNING: Qdrant gRPC using plaintext (TLS disabled). Insecure for production.\n")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	isolation := config.Isolation
	if isolation == nil {
		isolation = NewPayloadIsolation()
	}

	store := &QdrantStore{
		client:    client,
		config:    config,
		isolation: isolation,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}
	if err := store.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return store, nil
}

// SetIsolationMode overrides the isolation mode. Tests only.
func (s *QdrantStore) SetIsolationMode(mode IsolationMode) {
	s.isolation = mode
}

// ensureCollection creates the chunk collection when absent.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.CollectionName)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.config.CollectionName, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.config.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", s.config.CollectionName, err)
	}
	return nil
}

// retryOperation runs operation with exponential backoff on transient errors.
func (s *QdrantStore) retryOperation(ctx context.Context, operation func() error) error {
	backoff := s.config.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !IsTransientError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// AddChunks stores pre-embedded chunks in the workspace scope.
func (s *QdrantStore) AddChunks(ctx context.Context, chunks []Chunk) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.AddChunks")
	defer span.End()
	span.SetAttributes(
		attribute.Int("chunk_count", len(chunks)),
		attribute.String("collection", s.config.CollectionName),
	)

	if len(chunks) == 0 {
		return nil, ErrEmptyChunks
	}
	if err := s.isolation.ValidateChunks(ctx, chunks); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("validating chunk scope: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		chunkID := c.ID
		if chunkID == "" {
			chunkID = uuid.New().String()
		}
		ids[i] = chunkID
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %s has no embedding", chunkID)
		}

		payload := map[string]*qdrant.Value{
			"id":          {Kind: &qdrant.Value_StringValue{StringValue: chunkID}},
			"content":     {Kind: &qdrant.Value_StringValue{StringValue: c.Content}},
			"tenant_id":   {Kind: &qdrant.Value_StringValue{StringValue: c.TenantID}},
			"user_id":     {Kind: &qdrant.Value_StringValue{StringValue: c.UserID}},
			"document_id": {Kind: &qdrant.Value_StringValue{StringValue: c.DocumentID}},
			"position":    {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(c.Position)}},
		}

		// Qdrant point IDs must be UUIDs; the chunk ID is preserved in
		// payload["id"] for retrieval.
		var pointID *qdrant.PointId
		if _, err := uuid.Parse(chunkID); err == nil {
			pointID = qdrant.NewIDUUID(chunkID)
		} else {
			pointID = qdrant.NewIDUUID(uuid.New().String())
		}

		points[i] = &qdrant.PointStruct{
			Id:      pointID,
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: payload,
		}
	}

	err := s.retryOperation(ctx, func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.CollectionName,
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("upserting points: %w", err)
	}

	ChunksAddedTotal.Add(float64(len(ids)))
	span.SetAttributes(attribute.Int("points_added", len(ids)))
	span.SetStatus(codes.Ok, "success")
	return ids, nil
}

// Query performs tenant-scoped similarity search with a server-side
// score threshold.
func (s *QdrantStore) Query(ctx context.Context, embedding []float32, threshold float32, count int) ([]Match, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.Int("count", count),
		attribute.Float64("threshold", float64(threshold)),
	)
	start := time.Now()
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

	filter := buildQdrantFilter(filters)

	var results []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.CollectionName,
			Query:          qdrant.NewQuery(embedding...),
			Limit:          qdrant.PtrOf(uint64(count)),
			ScoreThreshold: qdrant.PtrOf(threshold),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         filter,
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.CollectionName, err)
	}

	matches := make([]Match, 0, len(results))
	for _, point := range results {
		meta := make(map[string]interface{}, len(point.Payload))
		for k, v := range point.Payload {
			if sv, ok := v.Kind.(*qdrant.Value_StringValue); ok {
				meta[k] = sv.StringValue
			}
		}
		// Defensive scope check on top of the server-side filter.
		if !s.isolation.VerifyResult(ctx, meta) {
			ScopeViolationsTotal.Inc()
			continue
		}
		chunkID, _ := meta["id"].(string)
		content, _ := meta["content"].(string)
		documentID, _ := meta["document_id"].(string)
		matches = append(matches, Match{
			ChunkID:    chunkID,
			Content:    content,
			Score:      point.Score,
			DocumentID: documentID,
		})
	}

	QueriesTotal.WithLabelValues("qdrant").Inc()
	span.SetAttributes(attribute.Int("results_count", len(matches)))
	span.SetStatus(codes.Ok, "success")
	return matches, nil
}

// DeleteChunks removes chunks by ID within the workspace scope.
func (s *QdrantStore) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	filters, err := s.isolation.InjectFilter(ctx, nil)
	if err != nil {
		return fmt.Errorf("injecting workspace filter: %w", err)
	}
	filter := buildQdrantFilter(filters)
	filter.Must = append(filter.Must, &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: "id",
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keywords{
						Keywords: &qdrant.RepeatedStrings{Strings: ids},
					},
				},
			},
		},
	})
	return s.deleteByFilter(ctx, filter)
}

// DeleteByDocument removes every chunk belonging to a document.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentID string) error {
	filters, err := s.isolation.InjectFilter(ctx, map[string]interface{}{
		"document_id": documentID,
	})
	if err != nil {
		return fmt.Errorf("injecting workspace filter: %w", err)
	}
	return s.deleteByFilter(ctx, buildQdrantFilter(filters))
}

func (s *QdrantStore) deleteByFilter(ctx context.Context, filter *qdrant.Filter) error {
	err := s.retryOperation(ctx, func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.CollectionName,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
			},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// buildQdrantFilter converts a string-keyed filter map to a Qdrant filter.
func buildQdrantFilter(filters map[string]interface{}) *qdrant.Filter {
	conditions := make([]*qdrant.Condition, 0, len(filters))
	for key, value := range filters {
		if v, ok := value.(string); ok {
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: key,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: v},
						},
					},
				},
			})
		}
	}
	return &qdrant.Filter{Must: conditions}
}

var _ Store = (*QdrantStore)(nil)

// Package vectorstore provides tenant-isolated similarity search over
// document chunks.
//
// Two implementations exist behind one interface: an embedded chromem-go
// store (default, zero external services) and an external Qdrant store.
// Both enforce workspace isolation at the query boundary: every call
// requires workspace scope in the context, and queries are filtered by
// tenant_id before ranking. Missing scope is an error, never an empty
// result set.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyChunks indicates empty or nil chunk batch.
	ErrEmptyChunks = errors.New("empty or nil chunks")

	// ErrConnectionFailed indicates the external store is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrScopeViolation indicates a result crossed the workspace boundary.
	// Defensive: the offending result is dropped, never returned.
	ErrScopeViolation = errors.New("search result outside requested workspace scope")

	// ErrScopeMismatch indicates a chunk tagged with a workspace other
	// than the one in the request context.
	ErrScopeMismatch = errors.New("chunk workspace does not match request scope")
)

// Store is the similarity-search capability consumed by the retrieval
// orchestrator and the document ingestion path.
//
// All operations require workspace scope in ctx (tenant.NewContext).
// Implementations fail closed: absent scope returns tenant.ErrMissingTenant.
type Store interface {
	// AddChunks stores pre-embedded document chunks in the workspace scope.
	//
	// Every chunk must carry the same TenantID as the request scope;
	// a mismatch is ErrScopeMismatch. Returns the stored chunk IDs.
	AddChunks(ctx context.Context, chunks []Chunk) ([]string, error)

	// Query returns up to count chunks whose similarity to the query
	// embedding is at least threshold, ordered by score descending,
	// strictly filtered to the workspace scope before ranking.
	Query(ctx context.Context, embedding []float32, threshold float32, count int) ([]Match, error)

	// DeleteChunks removes chunks by ID within the workspace scope.
	DeleteChunks(ctx context.Context, ids []string) error

	// DeleteByDocument removes every chunk belonging to a document.
	// Used when a document is deleted or re-chunked.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Close releases store resources.
	Close() error
}

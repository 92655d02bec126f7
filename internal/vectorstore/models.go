package vectorstore

// Chunk is an embedded segment of a workspace document, the unit of
// retrieval.
//
// A chunk always carries both the owning workspace ID and the owning
// user ID. The duplicate tagging is defense in depth: both must match
// the same workspace at write time, and the store rejects the batch
// otherwise. Chunks are immutable once written; re-chunking a document
// deletes and recreates them.
type Chunk struct {
	// ID is the unique chunk identifier.
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// TenantID is the owning workspace. Must equal the request scope.
	TenantID string

	// UserID is the uploading user within the workspace.
	UserID string

	// Content is the chunk text.
	Content string

	// Embedding is the chunk's vector. Must already be computed;
	// stores never embed on their own.
	Embedding []float32

	// Position is the chunk's index within the document.
	Position int
}

// Match is a similarity-search result.
type Match struct {
	// ChunkID is the matched chunk's identifier.
	ChunkID string

	// Content is the chunk text.
	Content string

	// Score is the similarity score, higher = more similar.
	Score float32

	// DocumentID references the owning document.
	DocumentID string
}

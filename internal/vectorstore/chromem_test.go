package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/vectorstore"
)

// unitVec returns a unit vector along the given axis. Identical axes
// have cosine similarity 1, distinct axes 0.
func unitVec(axis, dim int) []float32 {
	v := make([]float32, dim)
	v[axis%dim] = 1
	return v
}

func newTestStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:              t.TempDir(),
		DefaultCollection: "test_chunks",
		VectorSize:        4,
	}, nil)
	require.NoError(t, err)
	return store
}

func scopeFor(tenantID string) context.Context {
	return tenant.NewContext(context.Background(), &tenant.Info{TenantID: tenantID, UserID: "u-" + tenantID})
}

func TestChromemConfig_ApplyDefaults(t *testing.T) {
	config := vectorstore.ChromemConfig{}
	config.ApplyDefaults()

	assert.Equal(t, "~/.config/trulybot/vectorstore", config.Path)
	assert.Equal(t, "workspace_chunks", config.DefaultCollection)
	assert.Equal(t, 1536, config.VectorSize)
}

func TestAddChunks_RequiresScope(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddChunks(context.Background(), []vectorstore.Chunk{
		{ID: "c1", TenantID: "t1", Content: "x", Embedding: unitVec(0, 4)},
	})
	assert.ErrorIs(t, err, tenant.ErrMissingTenant)
}

func TestAddChunks_RejectsScopeMismatch(t *testing.T) {
	store := newTestStore(t)

	// A chunk tagged for another workspace must never be written under
	// this scope, even alongside valid chunks.
	_, err := store.AddChunks(scopeFor("t1"), []vectorstore.Chunk{
		{ID: "c1", TenantID: "t1", Content: "mine", Embedding: unitVec(0, 4)},
		{ID: "c2", TenantID: "t2", Content: "theirs", Embedding: unitVec(0, 4)},
	})
	assert.ErrorIs(t, err, vectorstore.ErrScopeMismatch)
}

func TestQuery_WorkspaceIsolation(t *testing.T) {
	store := newTestStore(t)

	// Both workspaces store a chunk with the identical embedding. Vector
	// distance alone cannot tell them apart; only the scope filter can.
	_, err := store.AddChunks(scopeFor("t1"), []vectorstore.Chunk{
		{ID: "a1", TenantID: "t1", DocumentID: "da", Content: "alpha's refund policy", Embedding: unitVec(0, 4)},
	})
	require.NoError(t, err)
	_, err = store.AddChunks(scopeFor("t2"), []vectorstore.Chunk{
		{ID: "b1", TenantID: "t2", DocumentID: "db", Content: "beta's refund policy", Embedding: unitVec(0, 4)},
	})
	require.NoError(t, err)

	matches, err := store.Query(scopeFor("t2"), unitVec(0, 4), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b1", matches[0].ChunkID)
	assert.Equal(t, "beta's refund policy", matches[0].Content)

	matches, err = store.Query(scopeFor("t1"), unitVec(0, 4), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a1", matches[0].ChunkID)
}

func TestQuery_RequiresScope(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddChunks(scopeFor("t1"), []vectorstore.Chunk{
		{ID: "c1", TenantID: "t1", Content: "x", Embedding: unitVec(0, 4)},
	})
	require.NoError(t, err)

	// Fail closed: a query without scope is an error, not an
	// unfiltered search.
	_, err = store.Query(context.Background(), unitVec(0, 4), 0.5, 10)
	assert.ErrorIs(t, err, tenant.ErrMissingTenant)
}

func TestQuery_ThresholdMonotonicity(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddChunks(scopeFor("t1"), []vectorstore.Chunk{
		{ID: "c1", TenantID: "t1", Content: "exact", Embedding: unitVec(0, 4)},
		{ID: "c2", TenantID: "t1", Content: "orthogonal", Embedding: unitVec(1, 4)},
	})
	require.NoError(t, err)

	low, err := store.Query(scopeFor("t1"), unitVec(0, 4), 0.0, 10)
	require.NoError(t, err)
	high, err := store.Query(scopeFor("t1"), unitVec(0, 4), 0.9, 10)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(high), len(low),
		"raising the threshold must never increase the result count")
	require.Len(t, high, 1)
	assert.Equal(t, "c1", high[0].ChunkID)
}

func TestQuery_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	matches, err := store.Query(scopeFor("t1"), unitVec(0, 4), 0.5, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDeleteByDocument(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddChunks(scopeFor("t1"), []vectorstore.Chunk{
		{ID: "d1:0", TenantID: "t1", DocumentID: "d1", Content: "old a", Embedding: unitVec(0, 4)},
		{ID: "d1:1", TenantID: "t1", DocumentID: "d1", Content: "old b", Embedding: unitVec(0, 4)},
		{ID: "d2:0", TenantID: "t1", DocumentID: "d2", Content: "keep", Embedding: unitVec(0, 4)},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteByDocument(scopeFor("t1"), "d1"))

	matches, err := store.Query(scopeFor("t1"), unitVec(0, 4), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "d2:0", matches[0].ChunkID)
}

func TestDeleteByDocument_ScopedToWorkspace(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddChunks(scopeFor("t1"), []vectorstore.Chunk{
		{ID: "a", TenantID: "t1", DocumentID: "shared-id", Content: "alpha", Embedding: unitVec(0, 4)},
	})
	require.NoError(t, err)
	_, err = store.AddChunks(scopeFor("t2"), []vectorstore.Chunk{
		{ID: "b", TenantID: "t2", DocumentID: "shared-id", Content: "beta", Embedding: unitVec(0, 4)},
	})
	require.NoError(t, err)

	// Deleting t2's document must not touch t1's chunks even though the
	// document IDs collide.
	require.NoError(t, store.DeleteByDocument(scopeFor("t2"), "shared-id"))

	matches, err := store.Query(scopeFor("t1"), unitVec(0, 4), 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ChunkID)
}

func TestAddChunks_Empty(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddChunks(scopeFor("t1"), nil)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyChunks)
}

func TestAddChunks_MissingEmbedding(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddChunks(scopeFor("t1"), []vectorstore.Chunk{
		{ID: "c1", TenantID: "t1", Content: "no vector"},
	})
	assert.Error(t, err)
}

package embeddings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/embeddings"
)

func newEmbedServer(t *testing.T, handler http.HandlerFunc) *embeddings.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := embeddings.NewService(embeddings.Config{
		BaseURL: srv.URL,
		Model:   "text-embedding-3-small",
	})
	require.NoError(t, err)
	return svc
}

func TestEmbedDocuments(t *testing.T) {
	svc := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		// Return vectors out of order; the service must reorder by index.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.2}},
				{"index": 0, "embedding": []float32{0.1}},
			},
		})
	})

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1}, vectors[0])
	assert.Equal(t, []float32{0.2}, vectors[1])
}

func TestEmbedDocuments_CountMismatch(t *testing.T) {
	svc := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{0.1}}},
		})
	})

	_, err := svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, embeddings.ErrEmbeddingFailed)
}

func TestEmbedDocuments_EmptyInput(t *testing.T) {
	svc := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})

	_, err := svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)
}

func TestEmbedDocuments_UpstreamError(t *testing.T) {
	svc := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := svc.EmbedDocuments(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, embeddings.ErrEmbeddingFailed)
}

func TestEmbedQuery(t *testing.T) {
	svc := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{0.5, 0.5}}},
		})
	})

	vec, err := svc.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)
}

func TestDimension(t *testing.T) {
	svc := newEmbedServer(t, nil)
	assert.Equal(t, 1536, svc.Dimension())

	large, err := embeddings.NewService(embeddings.Config{BaseURL: "http://x", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, large.Dimension())
}

func TestNewService_Validation(t *testing.T) {
	_, err := embeddings.NewService(embeddings.Config{Model: "m"})
	assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)

	_, err = embeddings.NewService(embeddings.Config{BaseURL: "http://x"})
	assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
}

package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/vectorstore"
)

type recordingStore struct {
	chunks  map[string][]vectorstore.Chunk
	deleted []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{chunks: make(map[string][]vectorstore.Chunk)}
}

func (s *recordingStore) AddChunks(_ context.Context, chunks []vectorstore.Chunk) ([]string, error) {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		s.chunks[c.DocumentID] = append(s.chunks[c.DocumentID], c)
		ids[i] = c.ID
	}
	return ids, nil
}

func (s *recordingStore) Query(context.Context, []float32, float32, int) ([]vectorstore.Match, error) {
	return nil, nil
}

func (s *recordingStore) DeleteChunks(context.Context, []string) error { return nil }

func (s *recordingStore) DeleteByDocument(_ context.Context, documentID string) error {
	delete(s.chunks, documentID)
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *recordingStore) Close() error { return nil }

type stubEmbedder struct{}

func (stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) Dimension() int { return 2 }

func newTestService(t *testing.T) (*Service, *recordingStore, *MemoryRepository) {
	t.Helper()
	store := newRecordingStore()
	repo := NewMemoryRepository()
	svc, err := NewService(repo, store, stubEmbedder{}, NewChunker(50, 5), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return svc, store, repo
}

func docCtx() context.Context {
	return tenant.NewContext(context.Background(), &tenant.Info{TenantID: "t1", UserID: "u1"})
}

func TestUpsert_NewDocument(t *testing.T) {
	svc, store, repo := newTestService(t)

	doc, err := svc.Upsert(docCtx(), "", "FAQ", "refunds are processed in five days")
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatal("document id not assigned")
	}
	if doc.ChunkCount != 1 {
		t.Errorf("chunk count = %d, want 1", doc.ChunkCount)
	}

	chunks := store.chunks[doc.ID]
	if len(chunks) != 1 {
		t.Fatalf("indexed chunks = %d, want 1", len(chunks))
	}
	// Every chunk carries both workspace and owner tags.
	if chunks[0].TenantID != "t1" || chunks[0].UserID != "u1" {
		t.Errorf("chunk scope = (%q, %q), want (t1, u1)", chunks[0].TenantID, chunks[0].UserID)
	}

	stored, err := repo.Get(docCtx(), "t1", doc.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Title != "FAQ" {
		t.Errorf("title = %q", stored.Title)
	}
}

func TestUpsert_RechunksExisting(t *testing.T) {
	svc, store, _ := newTestService(t)

	doc, err := svc.Upsert(docCtx(), "", "FAQ", "original body")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Upsert(docCtx(), doc.ID, "FAQ", "completely new body with different content")
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if updated.ID != doc.ID {
		t.Errorf("id changed on update: %q -> %q", doc.ID, updated.ID)
	}

	// Stale chunks are dropped before the new ones are written.
	found := false
	for _, d := range store.deleted {
		if d == doc.ID {
			found = true
		}
	}
	if !found {
		t.Error("old chunks were not deleted on re-ingest")
	}
	for _, c := range store.chunks[doc.ID] {
		if c.Content == "original body" {
			t.Error("stale chunk survived re-ingest")
		}
	}
}

func TestDelete_Cascades(t *testing.T) {
	svc, store, repo := newTestService(t)

	doc, err := svc.Upsert(docCtx(), "", "FAQ", "body")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(docCtx(), doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(docCtx(), "t1", doc.ID); !errors.Is(err, ErrNotFound) {
		t.Error("document row not removed")
	}
	if len(store.chunks[doc.ID]) != 0 {
		t.Error("chunks not removed with the document")
	}
}

func TestService_TenantScoping(t *testing.T) {
	svc, _, _ := newTestService(t)

	doc, err := svc.Upsert(docCtx(), "", "FAQ", "body")
	if err != nil {
		t.Fatal(err)
	}

	otherCtx := tenant.NewContext(context.Background(), &tenant.Info{TenantID: "t2"})
	if _, err := svc.Get(otherCtx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Error("document visible across workspaces")
	}
	if err := svc.Delete(otherCtx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Error("cross-workspace delete should miss")
	}
	if _, err := svc.Upsert(context.Background(), "", "x", "y"); !errors.Is(err, tenant.ErrMissingTenant) {
		t.Error("upsert without workspace scope should fail closed")
	}
}

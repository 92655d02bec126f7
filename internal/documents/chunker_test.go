package documents

import (
	"strings"
	"testing"
)

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = "w" + strings.Repeat("x", i%3)
	}
	return strings.Join(out, " ")
}

func TestChunker(t *testing.T) {
	t.Run("short text is one chunk", func(t *testing.T) {
		chunks := NewChunker(200, 20).Chunk("hello world")
		if len(chunks) != 1 || chunks[0] != "hello world" {
			t.Errorf("chunks = %v", chunks)
		}
	})

	t.Run("empty text yields nothing", func(t *testing.T) {
		if chunks := NewChunker(200, 20).Chunk("   \n\t "); chunks != nil {
			t.Errorf("chunks = %v, want nil", chunks)
		}
	})

	t.Run("long text splits with overlap", func(t *testing.T) {
		chunker := NewChunker(100, 10)
		chunks := chunker.Chunk(words(250))
		if len(chunks) != 3 {
			t.Fatalf("chunk count = %d, want 3", len(chunks))
		}
		// Consecutive chunks share the overlap words.
		first := strings.Fields(chunks[0])
		second := strings.Fields(chunks[1])
		if !strings.HasPrefix(strings.Join(second[:10], " "), strings.Join(first[90:], " ")) {
			t.Error("second chunk does not start with the first chunk's tail")
		}
	})

	t.Run("no overlap when configured off", func(t *testing.T) {
		chunker := NewChunker(100, 0)
		chunks := chunker.Chunk(words(200))
		if len(chunks) != 2 {
			t.Fatalf("chunk count = %d, want 2", len(chunks))
		}
		total := len(strings.Fields(chunks[0])) + len(strings.Fields(chunks[1]))
		if total != 200 {
			t.Errorf("total words = %d, want 200", total)
		}
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		chunker := NewChunker(0, -5)
		if chunks := chunker.Chunk(words(50)); len(chunks) != 1 {
			t.Errorf("chunk count = %d, want 1", len(chunks))
		}
	})
}

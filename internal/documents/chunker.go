// Package documents ingests workspace knowledge: text is chunked,
// embedded, and written to the vector store under the owning tenant.
package documents

import "strings"

// Chunker splits document text into overlapping word windows. Overlap
// keeps sentences that straddle a boundary retrievable from both sides.
type Chunker struct {
	wordsPerChunk int
	overlapWords  int
}

func NewChunker(wordsPerChunk, overlapWords int) *Chunker {
	if wordsPerChunk <= 0 {
		wordsPerChunk = 200
	}
	if overlapWords < 0 || overlapWords >= wordsPerChunk {
		overlapWords = wordsPerChunk / 10
	}
	return &Chunker{wordsPerChunk: wordsPerChunk, overlapWords: overlapWords}
}

// Chunk splits text into windows. Empty or whitespace-only text yields
// no chunks.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var chunks []string
	i := 0
	for i < len(words) {
		end := i + c.wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
		i = end - c.overlapWords
	}
	return chunks
}

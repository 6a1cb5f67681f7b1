// Package retrieval keeps a per-session in-memory vector index over workspace
// files and serves top-k code context for prompt assembly. Vectors are
// normalized on insert so dot product equals cosine similarity; search is
// exact brute force, which stays sub-millisecond at workspace scale.
package retrieval

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
)

// Embedder turns texts into embedding vectors. *ai.OllamaClient satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// File is one workspace file submitted for indexing.
type File struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// Result is a retrieved chunk with its similarity to the query.
type Result struct {
	Path     string  `json:"path"`
	Name     string  `json:"name"`
	Language string  `json:"language"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

type document struct {
	path     string
	name     string
	language string
	content  string
	vector   []float32 // normalized
}

// Store holds one vector index per session. Sessions are created lazily and
// replaced wholesale on sync.
type Store struct {
	embedder Embedder

	mu       sync.RWMutex
	sessions map[string][]document
}

// NewStore creates an empty multi-session store.
func NewStore(embedder Embedder) *Store {
	return &Store{
		embedder: embedder,
		sessions: make(map[string][]document),
	}
}

// chunk splits file content on blank lines, falling back to the whole content
// when it has no paragraph structure.
func chunk(content string) []string {
	if !strings.Contains(content, "\n\n") {
		if strings.TrimSpace(content) == "" {
			return nil
		}
		return []string{strings.TrimSpace(content)}
	}
	var chunks []string
	for _, c := range strings.Split(content, "\n\n") {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// Sync replaces the session's index with fresh embeddings of the given files.
// The old index is discarded even when files is empty. Returns the number of
// chunks indexed.
func (s *Store) Sync(ctx context.Context, sessionID string, files []File) (int, error) {
	var docs []document
	var texts []string
	for _, f := range files {
		for _, c := range chunk(f.Content) {
			docs = append(docs, document{
				path:     f.Path,
				name:     f.Name,
				language: f.Language,
				content:  c,
			})
			texts = append(texts, c)
		}
	}

	if len(texts) > 0 {
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed %d chunks: %w", len(texts), err)
		}
		for i := range docs {
			docs[i].vector = normalize(vectors[i])
		}
	}

	s.mu.Lock()
	s.sessions[sessionID] = docs
	s.mu.Unlock()
	return len(docs), nil
}

// Clear drops the session's index.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Count returns the number of indexed chunks for the session.
func (s *Store) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}

// Retrieve returns the top-k chunks most similar to the query for the
// session's index. An unknown session yields no results, not an error.
func (s *Store) Retrieve(ctx context.Context, sessionID, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	docs := s.sessions[sessionID]
	s.mu.RUnlock()
	if len(docs) == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVec := normalize(vectors[0])

	h := &minHeap{}
	heap.Init(h)
	for i := range docs {
		if len(docs[i].vector) != len(queryVec) {
			continue
		}
		score := dotProduct(queryVec, docs[i].vector)
		if h.Len() < topK {
			heap.Push(h, scored{index: i, score: score})
		} else if score > (*h)[0].score {
			(*h)[0] = scored{index: i, score: score}
			heap.Fix(h, 0)
		}
	}

	results := make([]Result, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		sc := heap.Pop(h).(scored)
		doc := docs[sc.index]
		results[i] = Result{
			Path:     doc.path,
			Name:     doc.name,
			Language: doc.language,
			Content:  doc.content,
			Score:    sc.score,
		}
	}
	return results, nil
}

type scored struct {
	index int
	score float64
}

// minHeap keeps the current top-k with the weakest result at the root.
type minHeap []scored

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].score < h[j].score }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(scored)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Package memory is the reference VectorIndex backend: an in-memory,
// brute-force cosine-similarity store. It doubles as a fixture for
// conformance tests and as a real "type: memory" configuration option for
// local development.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Index is a concurrency-safe, brute-force cosine-similarity VectorIndex.
type Index struct {
	mu        sync.RWMutex
	dimension int
	chunks    map[string]domain.Chunk // by chunk ID
	order     []string                // insertion order, for stable ListDocuments/GetDocumentChunks
}

// New returns an uninitialized in-memory index.
func New() *Index {
	return &Index{chunks: make(map[string]domain.Chunk)}
}

func (idx *Index) Initialize(_ context.Context, dimension int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.dimension = dimension
	return nil
}

func (idx *Index) Upsert(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return domain.ErrInvalidChunk
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, c := range chunks {
		if _, exists := idx.chunks[c.ID]; !exists {
			idx.order = append(idx.order, c.ID)
		}
		idx.chunks[c.ID] = c
	}
	return nil
}

func (idx *Index) Search(_ context.Context, queryVector []float32, topK int, minScore *float64) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]domain.RetrievedChunk, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		score := cosineSimilarity(queryVector, c.Embedding)
		if minScore != nil && score < *minScore {
			continue
		}
		stripped := c
		stripped.Embedding = nil
		results = append(results, domain.RetrievedChunk{Chunk: stripped, Score: score})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (idx *Index) ListDocuments(_ context.Context) ([]domain.Document, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type agg struct {
		doc   domain.Document
		count int
	}
	byDoc := make(map[string]*agg)
	var docOrder []string
	for _, id := range idx.order {
		c, ok := idx.chunks[id]
		if !ok {
			continue
		}
		a, exists := byDoc[c.DocumentID]
		if !exists {
			a = &agg{doc: domain.Document{
				ID:         c.DocumentID,
				Name:       c.DocumentName,
				CreatedUtc: c.CreatedUtc,
			}}
			byDoc[c.DocumentID] = a
			docOrder = append(docOrder, c.DocumentID)
		}
		if c.CreatedUtc.Before(a.doc.CreatedUtc) {
			a.doc.CreatedUtc = c.CreatedUtc
		}
		a.count++
		a.doc.TotalSizeBytes += len(c.Text)
	}

	docs := make([]domain.Document, 0, len(byDoc))
	for _, id := range docOrder {
		a := byDoc[id]
		a.doc.ChunkCount = a.count
		docs = append(docs, a.doc)
	}
	return docs, nil
}

func (idx *Index) GetDocument(ctx context.Context, id string) (domain.Document, bool, error) {
	docs, err := idx.ListDocuments(ctx)
	if err != nil {
		return domain.Document{}, false, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, true, nil
		}
	}
	return domain.Document{}, false, nil
}

func (idx *Index) GetDocumentChunks(_ context.Context, id string) ([]domain.Chunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []domain.Chunk
	for _, cid := range idx.order {
		c, ok := idx.chunks[cid]
		if !ok || c.DocumentID != id {
			continue
		}
		c.Embedding = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

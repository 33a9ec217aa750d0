// Package qdrant implements the VectorIndex contract against a Qdrant REST
// endpoint: PUT to create a cosine-distance collection, PUT to upsert points
// with chunk metadata carried in the payload, POST to search and scroll.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures a Qdrant HTTP client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Index is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection if missing.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *zap.Logger
}

// New returns a Qdrant-backed VectorIndex.
func New(cfg Config, logger *zap.Logger) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (idx *Index) Initialize(ctx context.Context, dimension int) error {
	collectionURL := fmt.Sprintf("%s/collections/%s", idx.url, idx.collection)
	if getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, collectionURL, nil); err == nil {
		idx.setHeaders(getReq)
		if resp, err := idx.client.Do(getReq); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := idx.putJSON(ctx, collectionURL, body); err != nil {
		return fmt.Errorf("%w: qdrant initialize: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return domain.ErrInvalidChunk
		}
		points[i] = map[string]any{
			"id":     c.ID,
			"vector": c.Embedding,
			"payload": map[string]any{
				"document_id":   c.DocumentID,
				"document_name": c.DocumentName,
				"index":         c.Index,
				"text":          c.Text,
				"snippet":       c.Snippet,
				"hash":          c.Hash,
				"created_utc":   c.CreatedUtc.Format(time.RFC3339),
			},
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", idx.url, idx.collection)
	if err := idx.putJSON(ctx, url, body); err != nil {
		return fmt.Errorf("%w: qdrant upsert: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, minScore *float64) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
	}
	if minScore != nil {
		req["score_threshold"] = *minScore
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", idx.url, idx.collection)
	if err := idx.postJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: qdrant search: %v", domain.ErrUpstreamVectorError, err)
	}

	results := make([]domain.RetrievedChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.RetrievedChunk{
			Chunk: chunkFromPayload(r.Payload),
			Score: r.Score,
		})
	}
	return results, nil
}

func (idx *Index) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	points, err := idx.scrollAll(ctx)
	if err != nil {
		return nil, err
	}

	type agg struct {
		doc   domain.Document
		count int
	}
	byDoc := make(map[string]*agg)
	var order []string
	for _, c := range points {
		a, exists := byDoc[c.DocumentID]
		if !exists {
			a = &agg{doc: domain.Document{ID: c.DocumentID, Name: c.DocumentName, CreatedUtc: c.CreatedUtc}}
			byDoc[c.DocumentID] = a
			order = append(order, c.DocumentID)
		}
		if c.CreatedUtc.Before(a.doc.CreatedUtc) {
			a.doc.CreatedUtc = c.CreatedUtc
		}
		a.count++
		a.doc.TotalSizeBytes += len(c.Text)
	}

	docs := make([]domain.Document, 0, len(byDoc))
	for _, id := range order {
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

func (idx *Index) GetDocumentChunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	points, err := idx.scrollAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Chunk
	for _, c := range points {
		if c.DocumentID != id {
			continue
		}
		c.Embedding = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (idx *Index) scrollAll(ctx context.Context) ([]domain.Chunk, error) {
	req := map[string]any{
		"limit":        10000,
		"with_payload": true,
		"with_vector":  false,
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/scroll", idx.url, idx.collection)
	if err := idx.postJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: qdrant scroll: %v", domain.ErrUpstreamVectorError, err)
	}
	chunks := make([]domain.Chunk, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		chunks = append(chunks, chunkFromPayload(p.Payload))
	}
	return chunks, nil
}

func chunkFromPayload(payload map[string]any) domain.Chunk {
	c := domain.Chunk{}
	if v, ok := payload["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := payload["document_name"].(string); ok {
		c.DocumentName = v
	}
	if v, ok := payload["index"].(float64); ok {
		c.Index = int(v)
	}
	if v, ok := payload["text"].(string); ok {
		c.Text = v
	}
	if v, ok := payload["snippet"].(string); ok {
		c.Snippet = v
	}
	if v, ok := payload["hash"].(string); ok {
		c.Hash = v
	}
	if v, ok := payload["created_utc"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.CreatedUtc = t
		}
	}
	return c
}

func (idx *Index) putJSON(ctx context.Context, url string, body any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	idx.setHeaders(req)
	resp, err := idx.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (idx *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	idx.setHeaders(req)
	resp, err := idx.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (idx *Index) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if idx.apiKey != "" {
		req.Header.Set("api-key", idx.apiKey)
	}
}

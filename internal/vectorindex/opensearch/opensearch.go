// Package opensearch implements the VectorIndex contract against an
// OpenSearch cluster's k-NN plugin, using
// github.com/opensearch-project/opensearch-go/v2 for transport and plain
// JSON request/response bodies for the k-NN mapping and query DSL.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the OpenSearch client and target index.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Timeout   time.Duration
}

// Index is a k-NN-backed VectorIndex.
type Index struct {
	client  *opensearchgo.Client
	index   string
	timeout time.Duration
}

// New returns an OpenSearch-backed VectorIndex.
func New(cfg Config) (*Index, error) {
	client, err := opensearchgo.NewClient(opensearchgo.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opensearch client: %v", domain.ErrUpstreamVectorError, err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	index := cfg.Index
	if index == "" {
		index = "runbook-chunks"
	}
	return &Index{client: client, index: index, timeout: timeout}, nil
}

func (idx *Index) Initialize(ctx context.Context, dimension int) error {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	body := map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"document_id":   map[string]any{"type": "keyword"},
				"document_name": map[string]any{"type": "text"},
				"index":         map[string]any{"type": "integer"},
				"text":          map[string]any{"type": "text"},
				"snippet":       map[string]any{"type": "text"},
				"hash":          map[string]any{"type": "keyword"},
				"created_utc":   map[string]any{"type": "date"},
				"embedding": map[string]any{
					"type":      "knn_vector",
					"dimension": dimension,
					"method": map[string]any{
						"name":       "hnsw",
						"space_type": "cosinesimil",
						"engine":     "nmslib",
					},
				},
			},
		},
	}
	data, _ := json.Marshal(body)
	res, err := idx.client.Indices.Create(idx.index, idx.client.Indices.Create.WithContext(ctx), idx.client.Indices.Create.WithBody(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("%w: opensearch create index: %v", domain.ErrUpstreamVectorError, err)
	}
	defer res.Body.Close()
	if res.IsError() && !alreadyExists(res) {
		return fmt.Errorf("%w: opensearch create index: %s", domain.ErrUpstreamVectorError, res.String())
	}
	return nil
}

func (idx *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	var buf bytes.Buffer
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return domain.ErrInvalidChunk
		}
		meta := map[string]any{"index": map[string]any{"_index": idx.index, "_id": c.ID}}
		metaLine, _ := json.Marshal(meta)
		buf.Write(metaLine)
		buf.WriteByte('\n')

		doc := map[string]any{
			"document_id":   c.DocumentID,
			"document_name": c.DocumentName,
			"index":         c.Index,
			"text":          c.Text,
			"snippet":       c.Snippet,
			"hash":          c.Hash,
			"created_utc":   c.CreatedUtc.Format(time.RFC3339),
			"embedding":     c.Embedding,
		}
		docLine, _ := json.Marshal(doc)
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	res, err := idx.client.Bulk(bytes.NewReader(buf.Bytes()), idx.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: opensearch bulk upsert: %v", domain.ErrUpstreamVectorError, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: opensearch bulk upsert: %s", domain.ErrUpstreamVectorError, res.String())
	}
	return nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, minScore *float64) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	body := map[string]any{
		"size": topK,
		"query": map[string]any{
			"knn": map[string]any{
				"embedding": map[string]any{"vector": queryVector, "k": topK},
			},
		},
	}
	data, _ := json.Marshal(body)
	res, err := idx.client.Search(
		idx.client.Search.WithContext(ctx),
		idx.client.Search.WithIndex(idx.index),
		idx.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: opensearch search: %v", domain.ErrUpstreamVectorError, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: opensearch search: %s", domain.ErrUpstreamVectorError, res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: opensearch decode search: %v", domain.ErrUpstreamVectorError, err)
	}

	out := make([]domain.RetrievedChunk, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if minScore != nil && h.Score < *minScore {
			continue
		}
		out = append(out, domain.RetrievedChunk{Chunk: chunkFromSource(h.Source), Score: h.Score})
	}
	return out, nil
}

func (idx *Index) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	all, err := idx.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	type agg struct {
		doc   domain.Document
		count int
	}
	byDoc := make(map[string]*agg)
	var order []string
	for _, c := range all {
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
	all, err := idx.fetchAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Chunk
	for _, c := range all {
		if c.DocumentID == id {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (idx *Index) fetchAll(ctx context.Context) ([]domain.Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	body := map[string]any{
		"size":  10000,
		"query": map[string]any{"match_all": map[string]any{}},
	}
	data, _ := json.Marshal(body)
	res, err := idx.client.Search(
		idx.client.Search.WithContext(ctx),
		idx.client.Search.WithIndex(idx.index),
		idx.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: opensearch fetch all: %v", domain.ErrUpstreamVectorError, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: opensearch fetch all: %s", domain.ErrUpstreamVectorError, res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: opensearch decode fetch all: %v", domain.ErrUpstreamVectorError, err)
	}

	out := make([]domain.Chunk, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, chunkFromSource(h.Source))
	}
	return out, nil
}

func chunkFromSource(src map[string]any) domain.Chunk {
	c := domain.Chunk{}
	if v, ok := src["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := src["document_name"].(string); ok {
		c.DocumentName = v
	}
	if v, ok := src["index"].(float64); ok {
		c.Index = int(v)
	}
	if v, ok := src["text"].(string); ok {
		c.Text = v
	}
	if v, ok := src["snippet"].(string); ok {
		c.Snippet = v
	}
	if v, ok := src["hash"].(string); ok {
		c.Hash = v
	}
	if v, ok := src["created_utc"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.CreatedUtc = t
		}
	}
	return c
}

func alreadyExists(res *opensearchapi.Response) bool {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return false
	}
	res.Body = io.NopCloser(bytes.NewReader(body))
	return bytes.Contains(body, []byte("resource_already_exists_exception"))
}

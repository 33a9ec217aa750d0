// Package azureaisearch implements the VectorIndex contract against Azure
// AI Search's vector-query REST API using a plain net/http client: api-key
// header authentication and JSON bodies mirroring the documented wire
// format for index creation, document upload, and vector queries.
package azureaisearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

const apiVersion = "2023-11-01"

// Config configures the Azure AI Search client.
type Config struct {
	Endpoint string // e.g. https://my-service.search.windows.net
	APIKey   string
	Index    string
	Timeout  time.Duration
}

// Index is a REST client to an Azure AI Search index.
type Index struct {
	endpoint string
	apiKey   string
	index    string
	client   *http.Client
}

// New returns an Azure-AI-Search-backed VectorIndex.
func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Index{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		index:    cfg.Index,
		client:   &http.Client{Timeout: timeout},
	}
}

func (idx *Index) Initialize(ctx context.Context, dimension int) error {
	body := map[string]any{
		"name": idx.index,
		"fields": []map[string]any{
			{"name": "id", "type": "Edm.String", "key": true, "filterable": true},
			{"name": "document_id", "type": "Edm.String", "filterable": true},
			{"name": "document_name", "type": "Edm.String", "filterable": true, "searchable": true},
			{"name": "index", "type": "Edm.Int32", "filterable": true, "sortable": true},
			{"name": "text", "type": "Edm.String", "searchable": true},
			{"name": "snippet", "type": "Edm.String", "searchable": true},
			{"name": "hash", "type": "Edm.String", "filterable": true},
			{"name": "created_utc", "type": "Edm.DateTimeOffset", "filterable": true, "sortable": true},
			{
				"name": "embedding", "type": "Collection(Edm.Single)",
				"dimensions": dimension, "vectorSearchProfile": "default-profile",
			},
		},
		"vectorSearch": map[string]any{
			"algorithms": []map[string]any{
				{"name": "default-hnsw", "kind": "hnsw", "hnswParameters": map[string]any{"metric": "cosine"}},
			},
			"profiles": []map[string]any{
				{"name": "default-profile", "algorithm": "default-hnsw"},
			},
		},
	}
	url := fmt.Sprintf("%s/indexes/%s?api-version=%s", idx.endpoint, idx.index, apiVersion)
	if err := idx.putJSON(ctx, url, body, nil); err != nil {
		return fmt.Errorf("%w: azureaisearch initialize: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return domain.ErrInvalidChunk
		}
		docs[i] = map[string]any{
			"@search.action": "mergeOrUpload",
			"id":             c.ID,
			"document_id":    c.DocumentID,
			"document_name":  c.DocumentName,
			"index":          c.Index,
			"text":           c.Text,
			"snippet":        c.Snippet,
			"hash":           c.Hash,
			"created_utc":    c.CreatedUtc.Format(time.RFC3339),
			"embedding":      c.Embedding,
		}
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", idx.endpoint, idx.index, apiVersion)
	if err := idx.postJSON(ctx, url, map[string]any{"value": docs}, nil); err != nil {
		return fmt.Errorf("%w: azureaisearch upsert: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, minScore *float64) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vectorQueries": []map[string]any{
			{"kind": "vector", "vector": queryVector, "k": topK, "fields": "embedding"},
		},
		"select": "id,document_id,document_name,index,text,snippet,hash,created_utc",
		"top":    topK,
	}
	var resp struct {
		Value []map[string]any `json:"value"`
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", idx.endpoint, idx.index, apiVersion)
	if err := idx.postJSON(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: azureaisearch search: %v", domain.ErrUpstreamVectorError, err)
	}

	out := make([]domain.RetrievedChunk, 0, len(resp.Value))
	for _, doc := range resp.Value {
		score, _ := doc["@search.score"].(float64)
		if minScore != nil && score < *minScore {
			continue
		}
		out = append(out, domain.RetrievedChunk{Chunk: chunkFromDoc(doc), Score: score})
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
	body := map[string]any{
		"search": "*",
		"select": "id,document_id,document_name,index,text,snippet,hash,created_utc",
		"top":    1000,
	}
	var resp struct {
		Value []map[string]any `json:"value"`
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", idx.endpoint, idx.index, apiVersion)
	if err := idx.postJSON(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: azureaisearch fetch all: %v", domain.ErrUpstreamVectorError, err)
	}
	out := make([]domain.Chunk, 0, len(resp.Value))
	for _, doc := range resp.Value {
		out = append(out, chunkFromDoc(doc))
	}
	return out, nil
}

func chunkFromDoc(doc map[string]any) domain.Chunk {
	c := domain.Chunk{}
	if v, ok := doc["id"].(string); ok {
		c.ID = v
	}
	if v, ok := doc["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := doc["document_name"].(string); ok {
		c.DocumentName = v
	}
	if v, ok := doc["index"].(float64); ok {
		c.Index = int(v)
	}
	if v, ok := doc["text"].(string); ok {
		c.Text = v
	}
	if v, ok := doc["snippet"].(string); ok {
		c.Snippet = v
	}
	if v, ok := doc["hash"].(string); ok {
		c.Hash = v
	}
	if v, ok := doc["created_utc"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.CreatedUtc = t
		}
	}
	return c
}

func (idx *Index) putJSON(ctx context.Context, url string, body any, out any) error {
	return idx.doJSON(ctx, http.MethodPut, url, body, out)
}

func (idx *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	return idx.doJSON(ctx, http.MethodPost, url, body, out)
}

func (idx *Index) doJSON(ctx context.Context, method, url string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", idx.apiKey)
	resp, err := idx.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("azure ai search %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

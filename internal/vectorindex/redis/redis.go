// Package redis implements the VectorIndex contract on top of Redis Stack's
// RediSearch vector similarity search, using github.com/redis/go-redis/v9.
// Chunks are stored as hashes under a key prefix; an FT.CREATE HNSW index
// on the embedding field backs FT.SEARCH KNN queries.
package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Redis connection and key namespace.
type Config struct {
	Addr      string
	Password  string
	DB        int
	IndexName string
	KeyPrefix string
	Timeout   time.Duration
}

// Index is a RediSearch-backed VectorIndex.
type Index struct {
	client    *goredis.Client
	indexName string
	keyPrefix string
	timeout   time.Duration
}

// New returns a Redis-backed VectorIndex.
func New(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "runbook-chunks-idx"
	}
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "chunk:"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Index{client: client, indexName: indexName, keyPrefix: keyPrefix, timeout: timeout}
}

func (idx *Index) Initialize(ctx context.Context, dimension int) error {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	args := []interface{}{
		"FT.CREATE", idx.indexName, "ON", "HASH", "PREFIX", "1", idx.keyPrefix,
		"SCHEMA",
		"document_id", "TAG",
		"document_name", "TEXT",
		"index", "NUMERIC",
		"text", "TEXT",
		"snippet", "TEXT",
		"hash", "TAG",
		"created_utc", "NUMERIC",
		"embedding", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32", "DIM", strconv.Itoa(dimension), "DISTANCE_METRIC", "COSINE",
	}
	err := idx.client.Do(ctx, args...).Err()
	if err != nil && !isIndexExistsErr(err) {
		return fmt.Errorf("%w: redis FT.CREATE: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	pipe := idx.client.Pipeline()
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return domain.ErrInvalidChunk
		}
		key := idx.keyPrefix + c.ID
		pipe.HSet(ctx, key, map[string]interface{}{
			"document_id":   c.DocumentID,
			"document_name": c.DocumentName,
			"index":         c.Index,
			"text":          c.Text,
			"snippet":       c.Snippet,
			"hash":          c.Hash,
			"created_utc":   c.CreatedUtc.Unix(),
			"embedding":     encodeFloat32Vector(c.Embedding),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis upsert: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, minScore *float64) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS score]", topK)
	args := []interface{}{
		"FT.SEARCH", idx.indexName, query,
		"PARAMS", "2", "vec", encodeFloat32Vector(queryVector),
		"SORTBY", "score",
		"DIALECT", "2",
	}
	res, err := idx.client.Do(ctx, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis FT.SEARCH: %v", domain.ErrUpstreamVectorError, err)
	}

	chunks, distances := parseSearchResult(res)
	out := make([]domain.RetrievedChunk, 0, len(chunks))
	for i, c := range chunks {
		score := 1 - distances[i]
		if minScore != nil && score < *minScore {
			continue
		}
		out = append(out, domain.RetrievedChunk{Chunk: c, Score: score})
	}
	return out, nil
}

func (idx *Index) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	all, err := idx.scanAllChunks(ctx)
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
	all, err := idx.scanAllChunks(ctx)
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

func (idx *Index) scanAllChunks(ctx context.Context) ([]domain.Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	var chunks []domain.Chunk
	iter := idx.client.Scan(ctx, 0, idx.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		fields, err := idx.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: redis HGETALL: %v", domain.ErrUpstreamVectorError, err)
		}
		idxVal, _ := strconv.Atoi(fields["index"])
		createdUnix, _ := strconv.ParseInt(fields["created_utc"], 10, 64)
		chunks = append(chunks, domain.Chunk{
			ID:           key[len(idx.keyPrefix):],
			DocumentID:   fields["document_id"],
			DocumentName: fields["document_name"],
			Index:        idxVal,
			Text:         fields["text"],
			Snippet:      fields["snippet"],
			Hash:         fields["hash"],
			CreatedUtc:   time.Unix(createdUnix, 0).UTC(),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: redis SCAN: %v", domain.ErrUpstreamVectorError, err)
	}
	return chunks, nil
}

func encodeFloat32Vector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func isIndexExistsErr(err error) bool {
	return err != nil && (err.Error() == "Index already exists" || err.Error() == "ERR Index already exists")
}

// parseSearchResult is a best-effort decoder for the RESP2 array shape
// FT.SEARCH returns: [total, key1, [field, value, ...], key2, ...]. Adapters
// against RESP3 clients decode the map reply instead; kept minimal here
// since only the fields the core needs are read.
func parseSearchResult(res interface{}) ([]domain.Chunk, []float64) {
	arr, ok := res.([]interface{})
	if !ok || len(arr) < 1 {
		return nil, nil
	}
	var chunks []domain.Chunk
	var scores []float64
	for i := 1; i+1 < len(arr); i += 2 {
		key, _ := arr[i].(string)
		fieldsArr, ok := arr[i+1].([]interface{})
		if !ok {
			continue
		}
		fields := make(map[string]string, len(fieldsArr)/2)
		for j := 0; j+1 < len(fieldsArr); j += 2 {
			k, _ := fieldsArr[j].(string)
			v, _ := fieldsArr[j+1].(string)
			fields[k] = v
		}
		idxVal, _ := strconv.Atoi(fields["index"])
		createdUnix, _ := strconv.ParseInt(fields["created_utc"], 10, 64)
		scoreVal, _ := strconv.ParseFloat(fields["score"], 64)
		id := key
		chunks = append(chunks, domain.Chunk{
			ID:           id,
			DocumentID:   fields["document_id"],
			DocumentName: fields["document_name"],
			Index:        idxVal,
			Text:         fields["text"],
			Snippet:      fields["snippet"],
			Hash:         fields["hash"],
			CreatedUtc:   time.Unix(createdUnix, 0).UTC(),
		})
		scores = append(scores, scoreVal)
	}
	return chunks, scores
}

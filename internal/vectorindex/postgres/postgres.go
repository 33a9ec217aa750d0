// Package postgres implements the VectorIndex contract on top of PostgreSQL
// with the pgvector extension, using github.com/jackc/pgx/v5 for the driver
// and github.com/pgvector/pgvector-go for the vector column type. Queries are
// plain SQL against a pgxpool.Pool; no ORM layer.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

// Config configures the Postgres connection and table name.
type Config struct {
	DSN     string
	Table   string
	Timeout time.Duration
}

// Index is a pgvector-backed VectorIndex.
type Index struct {
	pool    *pgxpool.Pool
	table   string
	timeout time.Duration
}

// New opens a connection pool and returns a pgvector-backed VectorIndex.
func New(ctx context.Context, cfg Config) (*Index, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres connect: %v", domain.ErrUpstreamVectorError, err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	table := cfg.Table
	if table == "" {
		table = "runbook_chunks"
	}
	return &Index{pool: pool, table: table, timeout: timeout}, nil
}

func (idx *Index) Initialize(ctx context.Context, dimension int) error {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	_, err := idx.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return fmt.Errorf("%w: postgres create extension: %v", domain.ErrUpstreamVectorError, err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id text PRIMARY KEY,
		document_id text NOT NULL,
		document_name text NOT NULL,
		index int NOT NULL,
		text text NOT NULL,
		snippet text NOT NULL,
		hash text NOT NULL,
		embedding vector(%d) NOT NULL,
		created_utc timestamptz NOT NULL
	)`, idx.table, dimension)
	if _, err := idx.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: postgres create table: %v", domain.ErrUpstreamVectorError, err)
	}

	idxDDL := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
		USING ivfflat (embedding vector_cosine_ops)`, idx.table, idx.table)
	if _, err := idx.pool.Exec(ctx, idxDDL); err != nil {
		return fmt.Errorf("%w: postgres create index: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return domain.ErrInvalidChunk
		}
	}

	upsertSQL := fmt.Sprintf(`INSERT INTO %s
		(id, document_id, document_name, index, text, snippet, hash, embedding, created_utc)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			document_name = EXCLUDED.document_name,
			index = EXCLUDED.index,
			text = EXCLUDED.text,
			snippet = EXCLUDED.snippet,
			hash = EXCLUDED.hash,
			embedding = EXCLUDED.embedding,
			created_utc = EXCLUDED.created_utc`, idx.table)

	tx, err := idx.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: postgres begin: %v", domain.ErrUpstreamVectorError, err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		_, err := tx.Exec(ctx, upsertSQL, c.ID, c.DocumentID, c.DocumentName, c.Index,
			c.Text, c.Snippet, c.Hash, pgvector.NewVector(c.Embedding), c.CreatedUtc)
		if err != nil {
			return fmt.Errorf("%w: postgres upsert: %v", domain.ErrUpstreamVectorError, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: postgres commit: %v", domain.ErrUpstreamVectorError, err)
	}
	return nil
}

func (idx *Index) Search(ctx context.Context, queryVector []float32, topK int, minScore *float64) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = 5
	}
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	q := fmt.Sprintf(`SELECT id, document_id, document_name, index, text, snippet, hash, created_utc,
		1 - (embedding <=> $1) AS score
		FROM %s ORDER BY embedding <=> $1 LIMIT $2`, idx.table)
	rows, err := idx.pool.Query(ctx, q, pgvector.NewVector(queryVector), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres search: %v", domain.ErrUpstreamVectorError, err)
	}
	defer rows.Close()

	var out []domain.RetrievedChunk
	for rows.Next() {
		var c domain.Chunk
		var score float64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocumentName, &c.Index, &c.Text, &c.Snippet, &c.Hash, &c.CreatedUtc, &score); err != nil {
			return nil, fmt.Errorf("%w: postgres scan: %v", domain.ErrUpstreamVectorError, err)
		}
		if minScore != nil && score < *minScore {
			continue
		}
		out = append(out, domain.RetrievedChunk{Chunk: c, Score: score})
	}
	return out, rows.Err()
}

func (idx *Index) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	q := fmt.Sprintf(`SELECT document_id, document_name, MIN(created_utc), COUNT(*), SUM(length(text))
		FROM %s GROUP BY document_id, document_name`, idx.table)
	rows, err := idx.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres list documents: %v", domain.ErrUpstreamVectorError, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedUtc, &d.ChunkCount, &d.TotalSizeBytes); err != nil {
			return nil, fmt.Errorf("%w: postgres scan document: %v", domain.ErrUpstreamVectorError, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
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
	ctx, cancel := context.WithTimeout(ctx, idx.timeout)
	defer cancel()

	q := fmt.Sprintf(`SELECT id, document_id, document_name, index, text, snippet, hash, created_utc
		FROM %s WHERE document_id = $1 ORDER BY index ASC`, idx.table)
	rows, err := idx.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres get document chunks: %v", domain.ErrUpstreamVectorError, err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocumentName, &c.Index, &c.Text, &c.Snippet, &c.Hash, &c.CreatedUtc); err != nil {
			return nil, fmt.Errorf("%w: postgres scan chunk: %v", domain.ErrUpstreamVectorError, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/paymentops/rag-runbooks/internal/answer"
	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	"github.com/paymentops/rag-runbooks/internal/chunker"
	"github.com/paymentops/rag-runbooks/internal/domain"
	"github.com/paymentops/rag-runbooks/internal/guardrail"
	"github.com/paymentops/rag-runbooks/internal/ingest"
	"github.com/paymentops/rag-runbooks/internal/retrieve"
	"github.com/paymentops/rag-runbooks/internal/vectorindex/memory"
)

type zeroEmbedder struct{ dim int }

func (e *zeroEmbedder) Name() string   { return "zero" }
func (e *zeroEmbedder) Dimension() int { return e.dim }

func (e *zeroEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, e.dim), nil
}

func (e *zeroEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dim)
	}
	return out, nil
}

type staticChatModel struct{ reply string }

func (m staticChatModel) Name() string { return "static" }

func (m staticChatModel) Complete(_ context.Context, _ chatmodel.Request) (chatmodel.Response, error) {
	return chatmodel.Response{Text: m.reply}, nil
}

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)

	idx := memory.New()
	require.NoError(t, idx.Initialize(context.Background(), 4))

	ch, err := chunker.New(chunker.Config{ChunkSize: 200, Overlap: 20, MaxChunksPerDocument: 50})
	require.NoError(t, err)
	emb := &zeroEmbedder{dim: 4}
	ing := ingest.New(ch, emb, idx, ingest.Config{EmbeddingBatchSize: 10, VectorStoreBatchSize: 10}, nil)

	retriever := retrieve.New(emb, idx, nil)
	ans := answer.New(guardrail.New(), retriever, staticChatModel{reply: "no grounded answer available"}, answer.Config{}, nil)

	return New(ing, ans, idx, nil)
}

func TestHandleIngestText_ReturnsChunkCount(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	body, _ := json.Marshal(map[string]string{
		"docName": "runbook.md",
		"text":    "This is the first sentence. This is the second sentence that is long enough to matter.",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/text", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ingestTextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "runbook.md", resp.DocName)
	require.Greater(t, resp.ChunkCount, 0)
}

func TestHandleIngestText_MissingFieldReturns400(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/text", bytes.NewReader([]byte(`{"docName":""}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListSources_EmptyIndexReturnsEmptyArray(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var docs []domain.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &docs))
	require.Empty(t, docs)
}

func TestHandleGetSource_UnknownIDReturns404(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/sources/missing-id", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAsk_ReturnsIDKOnEmptyCorpus(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	body, _ := json.Marshal(map[string]string{"question": "How do I reconcile a failed payment?"})
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.AnswerMarkdown, "I don't know based on the provided runbooks."))
	require.Empty(t, resp.Citations)
}

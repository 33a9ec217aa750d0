package httpapi

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

type ingestTextRequest struct {
	DocName string `json:"docName" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

type ingestTextResponse struct {
	DocumentID string `json:"documentId"`
	DocName    string `json:"docName"`
	ChunkCount int    `json:"chunkCount"`
	CreatedUtc string `json:"createdUtc"`
}

func (s *Server) handleIngestText(c *gin.Context) {
	var req ingestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := s.ingestor.IngestText(c.Request.Context(), req.DocName, req.Text, "")
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingestTextResponse{
		DocumentID: doc.ID,
		DocName:    doc.Name,
		ChunkCount: doc.ChunkCount,
		CreatedUtc: doc.CreatedUtc.Format("2006-01-02T15:04:05Z07:00"),
	})
}

type ingestFileResult struct {
	FileName   string `json:"fileName"`
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
}

func (s *Server) handleIngestFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpDir, err := os.MkdirTemp("", "ingest-upload-*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(tmpDir)

	var paths []string
	for _, fh := range form.File["files"] {
		dst := filepath.Join(tmpDir, filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			continue
		}
		paths = append(paths, dst)
	}

	docs := s.ingestor.IngestFiles(c.Request.Context(), paths)
	results := make([]ingestFileResult, len(docs))
	for i, d := range docs {
		results[i] = ingestFileResult{FileName: d.Name, DocumentID: d.ID, ChunkCount: d.ChunkCount}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type ingestSamplesRequest struct {
	FolderPath string `json:"folderPath"`
}

func (s *Server) handleIngestSamples(c *gin.Context) {
	var req ingestSamplesRequest
	_ = c.ShouldBindJSON(&req)
	if req.FolderPath == "" {
		req.FolderPath = "samples"
	}

	entries, err := os.ReadDir(req.FolderPath)
	if err != nil {
		writeError(c, err)
		return
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(req.FolderPath, e.Name()))
		}
	}

	docs := s.ingestor.IngestFiles(c.Request.Context(), paths)
	c.JSON(http.StatusOK, gin.H{"ingested": len(docs), "documents": docs})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     int    `json:"topK"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := s.answerer.Ask(c.Request.Context(), req.Question, req.TopK)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListSources(c *gin.Context) {
	docs, err := s.index.ListDocuments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (s *Server) handleGetSource(c *gin.Context) {
	id := c.Param("id")
	doc, found, err := s.index.GetDocument(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}

	chunks, err := s.index.GetDocumentChunks(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc, "chunks": chunks})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyDocument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Package httpapi wires the RAG core to an HTTP surface: a router group per
// the ingest/ask/sources routes, with controllers delegating to the core
// packages (ingest, answer, vectorindex) rather than embedding pipeline
// logic in handlers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paymentops/rag-runbooks/internal/answer"
	"github.com/paymentops/rag-runbooks/internal/ingest"
	"github.com/paymentops/rag-runbooks/internal/vectorindex"
)

// Server holds the dependencies HTTP handlers delegate to.
type Server struct {
	ingestor *ingest.Ingestor
	answerer *answer.Answerer
	index    vectorindex.VectorIndex
	logger   *zap.Logger
}

// New returns a Server wrapping the core pipeline components.
func New(ingestor *ingest.Ingestor, answerer *answer.Answerer, index vectorindex.VectorIndex, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{ingestor: ingestor, answerer: answerer, index: index, logger: logger}
}

// Router builds the gin engine with request logging and CORS middleware and
// registers the routes in the external interface.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())

	api := engine.Group("/api")
	api.POST("/ingest/text", s.handleIngestText)
	api.POST("/ingest/files", s.handleIngestFiles)
	api.POST("/ingest/samples", s.handleIngestSamples)
	api.POST("/ask", s.handleAsk)
	api.GET("/sources", s.handleListSources)
	api.GET("/sources/:id", s.handleGetSource)

	return engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

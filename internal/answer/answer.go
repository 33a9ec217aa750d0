// Package answer composes grounded prompts from retrieved chunks, invokes a
// ChatModel, enforces citation discipline with a bounded retry, and returns
// an auditable AskResponse.
package answer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paymentops/rag-runbooks/internal/chatmodel"
	"github.com/paymentops/rag-runbooks/internal/domain"
	"github.com/paymentops/rag-runbooks/internal/guardrail"
	"github.com/paymentops/rag-runbooks/internal/retrieve"
)

const (
	refusalMessage    = "I cannot process this request. Please ask a question about payment operations."
	idkMessage        = "I don't know based on the provided runbooks."
	truncationMarker  = "... [truncated]"
	answerTemperature = 0.1
)

var citationPattern = regexp.MustCompile(`\[([^\]]+):(\d+)\]`)

const defaultSystemPrompt = `You are a payment-operations assistant. Answer only using the provided context.
If the context does not support an answer, say "I don't know based on the provided runbooks."
Structure your reply with Summary, Checklist, and Citations sections.
Cite every fact you state as [docName:chunkIndex], matching the bracketed labels in the context.`

const strictSystemPrompt = defaultSystemPrompt + `
NO citations = invalid response. Every factual sentence must carry at least one [docName:chunkIndex] citation.`

// Config configures question handling limits.
type Config struct {
	MaxQuestionLength int
	TopK              int
}

// Answerer composes prompts, calls a ChatModel, and enforces citations.
type Answerer struct {
	guardrail *guardrail.Guardrail
	retriever *retrieve.Retriever
	chatModel chatmodel.ChatModel
	cfg       Config
	logger    *zap.Logger
}

// New returns an Answerer.
func New(g *guardrail.Guardrail, r *retrieve.Retriever, model chatmodel.ChatModel, cfg Config, logger *zap.Logger) *Answerer {
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = 2000
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{guardrail: g, retriever: r, chatModel: model, cfg: cfg, logger: logger}
}

// Ask runs the guardrail → retrieve → generate → cite pipeline for
// question, returning an auditable AskResponse.
func (a *Answerer) Ask(ctx context.Context, question string, topK int) domain.AskResponse {
	start := time.Now()
	if topK <= 0 {
		topK = a.cfg.TopK
	}

	verdict := a.guardrail.Inspect(question)
	if verdict.Severity == domain.SeveritySevere {
		return domain.AskResponse{
			AnswerMarkdown: refusalMessage,
			Citations:      []domain.Citation{},
			Retrieved:      []domain.RetrievedChunk{},
			ElapsedMs:      elapsedMs(start),
		}
	}

	question = truncateQuestion(question, a.cfg.MaxQuestionLength)

	retrieved, err := a.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return a.errorResponse(start, err)
	}
	if len(retrieved) == 0 {
		return domain.AskResponse{
			AnswerMarkdown: idkMessage + " Try ingesting more runbooks that cover this topic.",
			Citations:      []domain.Citation{},
			Retrieved:      []domain.RetrievedChunk{},
			ElapsedMs:      elapsedMs(start),
		}
	}

	contextBlock := buildContextBlock(retrieved)
	userPrompt := question + "\n\nContext:\n" + contextBlock

	systemPrompt := defaultSystemPrompt
	if verdict.Severity == domain.SeverityModerate {
		systemPrompt = strictSystemPrompt
	}

	answerText, tokensUsed, err := a.generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return a.errorResponse(start, err)
	}

	citations := parseCitations(answerText, retrieved)
	if len(citations) == 0 && !strings.Contains(strings.ToLower(answerText), "i don't know") {
		retryText, retryTokens, err := a.generate(ctx, strictSystemPrompt, userPrompt)
		if err != nil {
			return a.errorResponse(start, err)
		}
		answerText = retryText
		if retryTokens != nil {
			tokensUsed = retryTokens
		}
		citations = parseCitations(answerText, retrieved)
	}

	return domain.AskResponse{
		AnswerMarkdown: answerText,
		Citations:      citations,
		Retrieved:      retrieved,
		ElapsedMs:      elapsedMs(start),
		TokensUsed:     tokensUsed,
	}
}

func (a *Answerer) generate(ctx context.Context, systemPrompt, userPrompt string) (string, *int, error) {
	resp, err := a.chatModel.Complete(ctx, chatmodel.Request{
		Messages: []chatmodel.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: answerTemperature,
	})
	if err != nil {
		return "", nil, err
	}
	return resp.Text, resp.TokensUsed, nil
}

func (a *Answerer) errorResponse(start time.Time, err error) domain.AskResponse {
	a.logger.Error("answer pipeline failed", zap.Error(err))
	return domain.AskResponse{
		AnswerMarkdown: fmt.Sprintf("An error occurred while processing your question. %v", err),
		Citations:      []domain.Citation{},
		Retrieved:      []domain.RetrievedChunk{},
		ElapsedMs:      elapsedMs(start),
	}
}

func truncateQuestion(question string, maxLen int) string {
	runes := []rune(question)
	if len(runes) <= maxLen {
		return question
	}
	return string(runes[:maxLen]) + truncationMarker
}

func buildContextBlock(chunks []domain.RetrievedChunk) string {
	blocks := make([]string, len(chunks))
	for i, rc := range chunks {
		blocks[i] = fmt.Sprintf("[%s:%d] %s", rc.Chunk.DocumentName, rc.Chunk.Index, rc.Chunk.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// parseCitations extracts (docName, index) pairs from answerText in
// first-appearance order, deduplicated, attaching the snippet from the
// matching retrieved chunk when found.
func parseCitations(answerText string, retrieved []domain.RetrievedChunk) []domain.Citation {
	type key struct {
		doc   string
		index string
	}
	snippetByKey := make(map[key]string, len(retrieved))
	for _, rc := range retrieved {
		snippetByKey[key{doc: rc.Chunk.DocumentName, index: fmt.Sprintf("%d", rc.Chunk.Index)}] = rc.Chunk.Snippet
	}

	seen := make(map[key]bool)
	var citations []domain.Citation
	for _, m := range citationPattern.FindAllStringSubmatch(answerText, -1) {
		docName, indexStr := m[1], m[2]
		k := key{doc: docName, index: indexStr}
		if seen[k] {
			continue
		}
		seen[k] = true

		var index int
		fmt.Sscanf(indexStr, "%d", &index)
		citations = append(citations, domain.Citation{
			DocumentName: docName,
			ChunkIndex:   index,
			Snippet:      snippetByKey[k],
		})
	}
	if citations == nil {
		citations = []domain.Citation{}
	}
	return citations
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

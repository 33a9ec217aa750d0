// Package chunker splits normalized document text into bounded, overlapping
// windows with deterministic indices, snapping each window boundary to the
// nearest sentence end within reach instead of cutting mid-sentence.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paymentops/rag-runbooks/internal/domain"
)

const (
	snippetMaxLen    = 240
	boundaryWindow   = 100
	boundaryChars    = ".\n"
)

// Config configures a Chunker's windowing behavior.
type Config struct {
	ChunkSize            int
	Overlap              int
	MaxChunksPerDocument int
}

// Chunker produces a deterministic sequence of overlapping text windows.
type Chunker struct {
	cfg Config
}

// New validates cfg and returns a Chunker. chunkSize must be > 0, overlap
// must be in [0, chunkSize), and maxChunksPerDocument must be > 0.
func New(cfg Config) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunker: chunkSize must be > 0")
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunker: overlap must be in [0, chunkSize)")
	}
	if cfg.MaxChunksPerDocument <= 0 {
		return nil, fmt.Errorf("chunker: maxChunksPerDocument must be > 0")
	}
	return &Chunker{cfg: cfg}, nil
}

// Chunk splits text into a deterministic, bounded sequence of Chunks
// belonging to documentID/documentName, timestamped with createdUtc.
func (c *Chunker) Chunk(documentID, documentName string, text string, createdUtc time.Time) ([]domain.Chunk, error) {
	normalized := normalize(text)
	if normalized == "" {
		return nil, nil
	}

	runes := []rune(normalized)
	n := len(runes)

	var chunks []domain.Chunk
	start := 0
	idx := 0
	for start < n {
		end := min(start+c.cfg.ChunkSize, n)
		if end < n {
			end = snapToBoundary(runes, start, end)
		}

		raw := string(runes[start:end])
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			chunks = append(chunks, newChunk(documentID, documentName, idx, trimmed, createdUtc))
			idx++
			if len(chunks) >= c.cfg.MaxChunksPerDocument {
				return nil, domain.ErrChunkExplosion
			}
		}

		if end == n {
			break
		}

		nextStart := end - c.cfg.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}

	return chunks, nil
}

func newChunk(documentID, documentName string, index int, text string, createdUtc time.Time) domain.Chunk {
	sum := sha256.Sum256([]byte(text))
	return domain.Chunk{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		DocumentName: documentName,
		Index:        index,
		Text:         text,
		Snippet:      snippet(text),
		Hash:         hex.EncodeToString(sum[:]),
		CreatedUtc:   createdUtc,
	}
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxLen {
		return text
	}
	return string(runes[:snippetMaxLen]) + "..."
}

// snapToBoundary looks within the last boundaryWindow runes of [start, end)
// for the rightmost '.' or '\n' and, if it lies at or past the midpoint of
// the window, cuts there instead of at the raw end. Ties between '.' and
// '\n' go to whichever is closer to end.
func snapToBoundary(runes []rune, start, end int) int {
	lower := end - boundaryWindow
	if lower < start {
		lower = start
	}

	best := -1
	for i := end - 1; i >= lower; i-- {
		if strings.ContainsRune(boundaryChars, runes[i]) {
			best = i
			break
		}
	}
	if best < 0 {
		return end
	}

	half := (end - start) / 2
	if half < 1 {
		half = 1
	}
	minAccept := start + half
	if best >= minAccept {
		return best + 1
	}
	return end
}

// normalize converts CRLF to LF, collapses runs of horizontal whitespace to
// a single space while preserving LF, and trims the result.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	inRun := false
	for _, r := range text {
		if r == '\n' {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if r == ' ' || r == '\t' || r == '\f' || r == '\v' {
			if !inRun {
				b.WriteRune(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

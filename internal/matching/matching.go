// Package matching compares requirement strings with free text.
package matching

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"

	"github.com/spigell/hr-screener/internal/ai"
	"go.uber.org/zap"
)

const (
	ResumeThreshold = 0.45
	AnswerThreshold = 0.5
)

type lemmatizer interface {
	LemmaSet(text string) map[string]struct{}
}

// Engine combines lemma overlap, lexical overlap and embedding similarity.
// Embeddings are cached per text for the lifetime of the engine.
type Engine struct {
	normalizer lemmatizer
	embedder   ai.Embedder
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string][]float32
}

func NewEngine(normalizer lemmatizer, embedder ai.Embedder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		normalizer: normalizer,
		embedder:   embedder,
		logger:     logger,
		cache:      make(map[string][]float32),
	}
}

func (e *Engine) LemmaSet(text string) map[string]struct{} {
	if e.normalizer == nil {
		return map[string]struct{}{}
	}
	return e.normalizer.LemmaSet(text)
}

// LemmaOverlap reports whether the lemma sets of a and b intersect.
func (e *Engine) LemmaOverlap(a, b string) bool {
	return intersects(e.LemmaSet(a), e.LemmaSet(b))
}

// OverlapsLemmas reports whether the lemmas of text intersect a precomputed lemma set.
func (e *Engine) OverlapsLemmas(text string, lemmas map[string]struct{}) bool {
	return intersects(e.LemmaSet(text), lemmas)
}

// PartialMatch reports whether the lowercased whitespace-separated words of a and b intersect.
func PartialMatch(a, b string) bool {
	return intersects(wordSet(a), wordSet(b))
}

// Similarity returns the cosine similarity of the embeddings of a and b.
// The second result is false when the score could not be computed.
func (e *Engine) Similarity(ctx context.Context, a, b string) (float64, bool) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0, false
	}
	if e.embedder == nil || !e.embedder.Available() {
		return 0, false
	}

	vectors, err := e.embed(ctx, a, b)
	if err != nil {
		e.logger.Warn("semantic similarity unavailable", zap.Error(err))
		return 0, false
	}

	score, err := Cosine(vectors[0], vectors[1])
	if err != nil {
		e.logger.Warn("semantic similarity failed", zap.Error(err))
		return 0, false
	}
	return score, true
}

// SemanticMatch reports whether the similarity of a and b reaches threshold.
// It is false whenever the similarity cannot be computed.
func (e *Engine) SemanticMatch(ctx context.Context, a, b string, threshold float64) bool {
	score, ok := e.Similarity(ctx, a, b)
	return ok && score >= threshold
}

func (e *Engine) embed(ctx context.Context, texts ...string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missing []string

	e.mu.Lock()
	for i, text := range texts {
		if vector, ok := e.cache[text]; ok {
			result[i] = vector
		} else {
			missing = append(missing, text)
		}
	}
	e.mu.Unlock()

	if len(missing) > 0 {
		missing = uniqueTexts(missing)
		vectors, err := e.embedder.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missing) {
			return nil, errors.New("embedder returned unexpected number of vectors")
		}

		e.mu.Lock()
		for i, text := range missing {
			e.cache[text] = vectors[i]
		}
		for i, text := range texts {
			if result[i] == nil {
				result[i] = e.cache[text]
			}
		}
		e.mu.Unlock()
	}

	return result, nil
}

// Cosine returns the cosine similarity of two equally sized vectors.
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, errors.New("vectors must be non-empty and of equal length")
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, errors.New("zero vector")
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0, errors.New("similarity is not a number")
	}
	return score, nil
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func intersects(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func uniqueTexts(texts []string) []string {
	seen := make(map[string]struct{}, len(texts))
	out := texts[:0]
	for _, t := range texts {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

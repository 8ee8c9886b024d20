package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/hr-screener/internal/nlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEmbedder struct {
	available bool
	vectors   map[string][]float32
	err       error
	calls     int
}

func (s *stubEmbedder) Available() bool { return s.available }

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, ok := s.vectors[text]
		if !ok {
			return nil, errors.New("unknown text " + text)
		}
		out[i] = v
	}
	return out, nil
}

func TestLemmaOverlap(t *testing.T) {
	e := NewEngine(nlp.New(nil, zap.NewNop()), nil, nil)

	assert.True(t, e.LemmaOverlap("Администрирование серверов Linux", "администрировал сервер"))
	assert.False(t, e.LemmaOverlap("Знание SQL", "опыт продаж"))
}

func TestPartialMatch(t *testing.T) {
	assert.True(t, PartialMatch("Знание SQL", "работал с sql каждый день"))
	assert.False(t, PartialMatch("Знание SQL", "работал с базами"))
	assert.False(t, PartialMatch("", "что угодно"))
}

func TestSemanticMatchMonotonicInThreshold(t *testing.T) {
	emb := &stubEmbedder{available: true, vectors: map[string][]float32{
		"req":  {1, 0},
		"text": {0.6, 0.8},
	}}
	e := NewEngine(nil, emb, nil)

	score, ok := e.Similarity(context.Background(), "req", "text")
	require.True(t, ok)
	assert.InDelta(t, 0.6, score, 1e-6)

	prev := true
	for _, threshold := range []float64{0, 0.3, 0.45, 0.5, 0.6, 0.61, 0.9, 1} {
		got := e.SemanticMatch(context.Background(), "req", "text", threshold)
		if !prev {
			assert.False(t, got, "threshold %v", threshold)
		}
		prev = got
	}
	assert.True(t, e.SemanticMatch(context.Background(), "req", "text", 0.5))
	assert.False(t, e.SemanticMatch(context.Background(), "req", "text", 0.61))
}

func TestSemanticMatchCachesEmbeddings(t *testing.T) {
	emb := &stubEmbedder{available: true, vectors: map[string][]float32{
		"req": {1, 0}, "a": {1, 0}, "b": {0, 1},
	}}
	e := NewEngine(nil, emb, nil)

	assert.True(t, e.SemanticMatch(context.Background(), "req", "a", 0.5))
	assert.False(t, e.SemanticMatch(context.Background(), "req", "b", 0.5))
	assert.True(t, e.SemanticMatch(context.Background(), "a", "req", 0.5))
	assert.Equal(t, 2, emb.calls)
}

func TestSemanticMatchDegradesToFalse(t *testing.T) {
	cases := map[string]*stubEmbedder{
		"unavailable": {available: false},
		"failing":     {available: true, err: errors.New("quota")},
		"zero vector": {available: true, vectors: map[string][]float32{"a": {0, 0}, "b": {1, 0}}},
	}
	for name, emb := range cases {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(nil, emb, nil)
			assert.False(t, e.SemanticMatch(context.Background(), "a", "b", 0))
		})
	}

	e := NewEngine(nil, nil, nil)
	assert.False(t, e.SemanticMatch(context.Background(), "a", "b", 0))
	assert.False(t, NewEngine(nil, &stubEmbedder{available: true}, nil).SemanticMatch(context.Background(), "", "b", 0))
}

func TestCosine(t *testing.T) {
	score, err := Cosine([]float32{1, 2}, []float32{2, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	_, err = Cosine([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

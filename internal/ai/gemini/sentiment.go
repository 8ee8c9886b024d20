package gemini

import (
	"context"
	"strings"

	_ "embed"

	"github.com/spigell/hr-screener/internal/ai"
	"google.golang.org/genai"
)

//go:embed prompts/sentiment.md
var sentimentPrompt string

// SentimentClassifier implements ai.SentimentClassifier on top of a Gemini model.
type SentimentClassifier struct {
	provider *Provider
}

func NewSentimentClassifier(p *Provider) *SentimentClassifier {
	return &SentimentClassifier{provider: p}
}

func (s *SentimentClassifier) Available() bool {
	return s.provider.Available()
}

func (s *SentimentClassifier) Classify(ctx context.Context, text string) (ai.Sentiment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ai.Sentiment{}, ai.ErrUnavailable
	}

	gen, err := s.provider.Generator()
	if err != nil {
		return ai.Sentiment{}, err
	}

	resp, err := gen.Generate(ctx, Request{
		System:           sentimentPrompt,
		Parts:            []*genai.Part{{Text: text}},
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		DisableThinking:  true,
	})
	if err != nil {
		return ai.Sentiment{}, err
	}

	raw, err := responseText(resp)
	if err != nil {
		return ai.Sentiment{}, err
	}

	var payload struct {
		Label      string  `mapstructure:"label"`
		Confidence float64 `mapstructure:"confidence"`
	}
	if err := decodeJSON(raw, &payload); err != nil {
		return ai.Sentiment{}, err
	}

	return ai.NewSentiment(payload.Label, payload.Confidence)
}

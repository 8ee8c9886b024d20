package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

const (
	questionTemperature     = 0.45
	questionMaxOutputTokens = 120
)

var questionStopSequences = []string{"HR:", "Кандидат:", "Candidate:"}

// QuestionModel implements ai.TextGenerator with sampling settings suited to short interview questions.
type QuestionModel struct {
	provider *Provider
}

func NewQuestionModel(p *Provider) *QuestionModel {
	return &QuestionModel{provider: p}
}

func (q *QuestionModel) Available() bool {
	return q.provider.Available()
}

func (q *QuestionModel) GenerateContent(ctx context.Context, system, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	gen, err := q.provider.Generator()
	if err != nil {
		return "", err
	}

	resp, err := gen.Generate(ctx, Request{
		System:          system,
		Parts:           []*genai.Part{{Text: message}},
		Temperature:     genai.Ptr[float32](questionTemperature),
		MaxOutputTokens: questionMaxOutputTokens,
		StopSequences:   questionStopSequences,
		DisableThinking: true,
	})
	if err != nil {
		return "", err
	}

	return responseText(resp)
}

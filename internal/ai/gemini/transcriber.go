package gemini

import (
	"context"
	"errors"
	"strings"

	_ "embed"

	"github.com/spigell/hr-screener/internal/ai"
	"google.golang.org/genai"
)

//go:embed prompts/transcribe.md
var transcribePrompt string

const defaultLanguage = "ru-RU"

// Transcriber implements ai.Transcriber by sending WAV audio inline to a Gemini model.
type Transcriber struct {
	provider *Provider
}

func NewTranscriber(p *Provider) *Transcriber {
	return &Transcriber{provider: p}
}

func (t *Transcriber) Available() bool {
	return t.provider.Available()
}

func (t *Transcriber) Transcribe(ctx context.Context, wav []byte, language string) (ai.Transcript, error) {
	if len(wav) == 0 {
		return ai.Transcript{}, errors.New("audio payload is empty")
	}

	gen, err := t.provider.Generator()
	if err != nil {
		return ai.Transcript{}, err
	}

	if language = strings.TrimSpace(language); language == "" {
		language = defaultLanguage
	}
	instruction := strings.ReplaceAll(transcribePrompt, "{{LANGUAGE}}", language)

	resp, err := gen.Generate(ctx, Request{
		Parts: []*genai.Part{
			{Text: instruction},
			genai.NewPartFromBytes(wav, "audio/wav"),
		},
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		DisableThinking:  true,
	})
	if err != nil {
		return ai.Transcript{}, err
	}

	raw, err := responseText(resp)
	if err != nil {
		return ai.Transcript{}, err
	}

	var payload struct {
		Text       string  `mapstructure:"text"`
		Confidence float64 `mapstructure:"confidence"`
	}
	if err := decodeJSON(raw, &payload); err != nil {
		return ai.Transcript{}, err
	}

	return ai.NewTranscript(payload.Text, payload.Confidence), nil
}

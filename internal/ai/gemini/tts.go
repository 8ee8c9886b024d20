package gemini

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/hr-screener/internal/ai"
	"google.golang.org/genai"
)

const defaultSpeechSampleRate = 24000

// Synthesizer implements ai.Synthesizer with a Gemini text-to-speech model.
type Synthesizer struct {
	provider *Provider
}

func NewSynthesizer(p *Provider) *Synthesizer {
	return &Synthesizer{provider: p}
}

func (s *Synthesizer) Available() bool {
	return s.provider.Available()
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (ai.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ai.Audio{}, errors.New("nothing to synthesize")
	}

	gen, err := s.provider.Generator()
	if err != nil {
		return ai.Audio{}, err
	}

	cfg := s.provider.Config()
	resp, err := gen.Generate(ctx, Request{
		Model:              cfg.SpeechModel,
		Parts:              []*genai.Part{{Text: text}},
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		},
	})
	if err != nil {
		return ai.Audio{}, err
	}

	return decodeSpeech(resp)
}

// decodeSpeech extracts the first inline PCM payload (signed 16-bit little endian).
func decodeSpeech(resp *genai.GenerateContentResponse) (ai.Audio, error) {
	if resp == nil {
		return ai.Audio{}, errors.New("gemini api returned nil response")
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}

			data := part.InlineData.Data
			if len(data)%2 != 0 {
				data = data[:len(data)-1]
			}
			pcm := make([]int16, len(data)/2)
			for i := range pcm {
				pcm[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
			}

			return ai.Audio{PCM: pcm, SampleRate: sampleRateFromMIME(part.InlineData.MIMEType)}, nil
		}
	}

	return ai.Audio{}, fmt.Errorf("gemini api returned no audio")
}

// sampleRateFromMIME reads the rate parameter of e.g. "audio/L16;codec=pcm;rate=24000".
func sampleRateFromMIME(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && rate > 0 {
			return rate
		}
	}
	return defaultSpeechSampleRate
}

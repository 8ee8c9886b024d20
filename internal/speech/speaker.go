package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spigell/hr-screener/internal/ai"
	"go.uber.org/zap"
)

// Speaker says text to the candidate. Failures are reported, never fatal to the caller.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// VoiceSpeaker synthesises text and plays it through a Sink.
type VoiceSpeaker struct {
	synth  ai.Synthesizer
	sink   Sink
	logger *zap.Logger
}

func NewVoiceSpeaker(synth ai.Synthesizer, sink Sink, logger *zap.Logger) *VoiceSpeaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoiceSpeaker{synth: synth, sink: sink, logger: logger}
}

func (s *VoiceSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if s.synth == nil || !s.synth.Available() {
		return ai.ErrUnavailable
	}

	audio, err := s.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}

	s.logger.Debug("playing speech",
		zap.Int("samples", len(audio.PCM)),
		zap.Int("sample_rate", audio.SampleRate),
	)

	if err := s.sink.Play(ctx, audio); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}

// ConsoleSpeaker prints what would be spoken. Used when audio output is disabled.
type ConsoleSpeaker struct {
	out io.Writer
}

func NewConsoleSpeaker(out io.Writer) *ConsoleSpeaker {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSpeaker{out: out}
}

func (s *ConsoleSpeaker) Speak(_ context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintf(s.out, "HR: %s\n", text)
	return err
}

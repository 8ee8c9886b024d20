// Package ai declares the opaque language services used by the screening pipeline and the
// strict result types they return.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnavailable is returned by a service that has no backend configured.
var ErrUnavailable = errors.New("ai service is unavailable")

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

type Sentiment struct {
	Label      SentimentLabel
	Confidence float64
}

// NewSentiment validates a raw label and confidence coming from a model.
func NewSentiment(label string, confidence float64) (Sentiment, error) {
	l := SentimentLabel(strings.ToLower(strings.TrimSpace(label)))
	switch l {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
	default:
		return Sentiment{}, fmt.Errorf("unknown sentiment label %q", label)
	}

	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Sentiment{}, fmt.Errorf("sentiment confidence %v out of range [0,1]", confidence)
	}

	return Sentiment{Label: l, Confidence: confidence}, nil
}

// Transcript is the result of one speech-to-text call.
type Transcript struct {
	Text       string
	Confidence float64
	OK         bool
}

func NewTranscript(text string, confidence float64) Transcript {
	text = strings.Join(strings.Fields(text), " ")
	if math.IsNaN(confidence) || confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Transcript{Text: text, Confidence: confidence, OK: text != ""}
}

// Audio is mono signed 16-bit PCM.
type Audio struct {
	PCM        []int16
	SampleRate int
}

type SentimentClassifier interface {
	Available() bool
	Classify(ctx context.Context, text string) (Sentiment, error)
}

type Embedder interface {
	Available() bool
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Transcriber interface {
	Available() bool
	// Transcribe converts a WAV payload to text in the given BCP-47 language.
	Transcribe(ctx context.Context, wav []byte, language string) (Transcript, error)
}

type Synthesizer interface {
	Available() bool
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// TextGenerator produces free text from a system instruction and a user message.
type TextGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

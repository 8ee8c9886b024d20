package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSentiment(t *testing.T) {
	s, err := NewSentiment(" Positive ", 0.8)
	require.NoError(t, err)
	assert.Equal(t, SentimentPositive, s.Label)
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)

	for _, tc := range []struct {
		name       string
		label      string
		confidence float64
	}{
		{name: "unknown label", label: "angry", confidence: 0.5},
		{name: "negative confidence", label: "neutral", confidence: -0.1},
		{name: "above one", label: "negative", confidence: 1.5},
		{name: "nan", label: "neutral", confidence: math.NaN()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSentiment(tc.label, tc.confidence)
			assert.Error(t, err)
		})
	}
}

func TestNewTranscript(t *testing.T) {
	tr := NewTranscript("  я работал\n с  сетями ", 1.3)
	assert.Equal(t, "я работал с сетями", tr.Text)
	assert.Equal(t, 1.0, tr.Confidence)
	assert.True(t, tr.OK)

	empty := NewTranscript("   ", math.NaN())
	assert.False(t, empty.OK)
	assert.Zero(t, empty.Confidence)
}

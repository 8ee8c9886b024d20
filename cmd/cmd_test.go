package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spigell/hr-screener/internal/extract"
	"github.com/spigell/hr-screener/internal/interview"
	"github.com/spigell/hr-screener/internal/speech"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStop struct{ calls int }

func (c *countingStop) Stop() { c.calls++ }

func TestAnswerStopper(t *testing.T) {
	target := &countingStop{}
	stopper := &answerStopper{target: target}
	sink := printEvents(&bytes.Buffer{}, stopper, false)

	// Enter is ignored while nothing is being recorded.
	stopper.listen(strings.NewReader("\n\n"))
	assert.Zero(t, target.calls)

	sink(interview.Event{Kind: interview.EventEnableStop})
	assert.True(t, stopper.enabled.Load())
	stopper.listen(strings.NewReader("\n"))
	assert.Equal(t, 1, target.calls)

	sink(interview.Event{Kind: interview.EventDisableStop})
	assert.False(t, stopper.enabled.Load())
	stopper.listen(strings.NewReader("\n"))
	assert.Equal(t, 1, target.calls)
}

func TestQuestionPrintedOnceWithoutVoice(t *testing.T) {
	var out bytes.Buffer
	speaker := speech.NewConsoleSpeaker(&out)
	sink := printEvents(&out, &answerStopper{}, true)

	require.NoError(t, speaker.Speak(context.Background(), "Расскажите о себе"))
	sink(interview.Event{Kind: interview.EventQuestion, Turn: 1, Message: "Вопрос 1: Расскажите о себе"})
	sink(interview.Event{Kind: interview.EventAnswer, Turn: 1, Message: "Ответ 1: опыт"})

	assert.Equal(t, 1, strings.Count(out.String(), "Расскажите о себе"))
	assert.NotContains(t, out.String(), "Вопрос 1")
	assert.Contains(t, out.String(), "Ответ 1: опыт")
}

func TestQuestionPrintedByEventsWithVoice(t *testing.T) {
	var out bytes.Buffer
	sink := printEvents(&out, &answerStopper{}, false)

	sink(interview.Event{Kind: interview.EventQuestion, Turn: 2, Message: "Вопрос 2: Почему мы?"})

	assert.Equal(t, "Вопрос 2: Почему мы?\n", out.String())
}

func TestValidateResumePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	assert.NoError(t, validateResumePath(" "+path+" "))
	assert.ErrorIs(t, validateResumePath(filepath.Join(dir, "resume.doc")), extract.ErrUnsupportedFormat)
	assert.Error(t, validateResumePath(filepath.Join(dir, "absent.txt")))
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	key, err := resolveAPIKey(nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	file := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(file, []byte(" from-file\n"), 0o600))

	key, err = resolveAPIKey(&AIConfig{APIKey: "inline", APIKeyFile: file})
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)

	key, err = resolveAPIKey(&AIConfig{APIKey: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "inline", key)
}

func TestVersionCommand(t *testing.T) {
	var out strings.Builder
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "hr-screener version: unknown")
}

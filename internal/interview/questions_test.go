package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spigell/hr-screener/internal/vacancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedModel struct {
	replies []string
	errs    []error
	prompts []string
	systems []string
}

func (m *scriptedModel) GenerateContent(_ context.Context, system, prompt string) (string, error) {
	i := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.systems = append(m.systems, system)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return "", errors.New("script exhausted")
}

func testVacancy() *vacancy.Vacancy {
	return &vacancy.Vacancy{
		ID:           "net-admin",
		Title:        "Сетевой администратор",
		Requirements: []string{"Cisco", "Знание модели OSI"},
		Duties:       []string{"Поддержка сети"},
		Questions:    []string{"Расскажите о своём опыте?", "Как вы настраивали VLAN?", "Что такое OSI?"},
	}
}

func TestNormalizeQuestion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Вопрос: Как вы настраивали VLAN? А ещё расскажите...", want: "Как вы настраивали VLAN?"},
		{in: "примеры вопросов - Что такое OSI?", want: "Что такое OSI?"},
		{in: "Example questions: What is SSH?", want: "What is SSH?"},
		{in: "1. Расскажите о проекте?", want: "Расскажите о проекте?"},
		{in: "* Почему вы ушли?", want: "Почему вы ушли?"},
		{in: "  Без вопросительного знака  ", want: "Без вопросительного знака"},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeQuestion(tc.in), tc.in)
	}
}

func TestNextAcceptsGeneratedQuestion(t *testing.T) {
	model := &scriptedModel{replies: []string{"Вопрос: Какие протоколы маршрутизации вы использовали?"}}
	g := NewQuestionGenerator(model, zap.NewNop())
	asked := NewAsked("Расскажите о своём опыте?")
	history := []DialogueTurn{{Question: "Расскажите о своём опыте?", Answer: "Работал с Cisco"}}

	q, err := g.Next(context.Background(), testVacancy(), history, asked, "Работал с Cisco")

	require.NoError(t, err)
	assert.Equal(t, "Какие протоколы маршрутизации вы использовали?", q)
	assert.True(t, asked.Contains(q))
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Вакансия: Сетевой администратор")
	assert.Contains(t, model.prompts[0], "HR: Расскажите о своём опыте?\nКандидат: Работал с Cisco")
	assert.Contains(t, model.prompts[0], "Предыдущий ответ кандидата (учти его для адаптации): Работал с Cisco")
	assert.Contains(t, model.systems[0], "HR-интервьюер")
}

func TestNextRetriesRejectedOutputs(t *testing.T) {
	model := &scriptedModel{replies: []string{
		"Расскажите о своём опыте?",
		"Да?",
		"Как вы диагностируете потерю пакетов?",
	}}
	g := NewQuestionGenerator(model, zap.NewNop())

	q, err := g.Next(context.Background(), testVacancy(), nil, NewAsked("Расскажите о своём опыте?"), "")

	require.NoError(t, err)
	assert.Equal(t, "Как вы диагностируете потерю пакетов?", q)
	require.Len(t, model.prompts, 3)
	assert.Equal(t, 2, strings.Count(model.prompts[2], retryInstruction))
	assert.Contains(t, model.prompts[0], "Диалог ещё не начат.")
}

func TestNextFallsBackAfterRejections(t *testing.T) {
	model := &scriptedModel{replies: []string{"нет", "нет", "нет"}}
	g := NewQuestionGenerator(model, zap.NewNop())
	g.intN = func(int) int { return 0 }
	asked := NewAsked("Расскажите о своём опыте?")

	q, err := g.Next(context.Background(), testVacancy(), nil, asked, "")

	require.NoError(t, err)
	assert.Equal(t, "Как вы настраивали VLAN?", q)
	assert.Len(t, model.prompts, maxGenerationAttempts)
	assert.True(t, asked.Contains(q))
}

func TestNextHardErrorStopsAttempts(t *testing.T) {
	model := &scriptedModel{errs: []error{errors.New("quota")}}
	g := NewQuestionGenerator(model, zap.NewNop())

	q, err := g.Next(context.Background(), testVacancy(), nil, NewAsked(), "")

	require.NoError(t, err)
	assert.Contains(t, testVacancy().Questions, q)
	assert.Len(t, model.prompts, 1)
}

func TestFallbackExhaustedBank(t *testing.T) {
	v := testVacancy()
	g := NewQuestionGenerator(nil, zap.NewNop())
	asked := NewAsked(v.Questions...)

	for i := 0; i < 20; i++ {
		q, err := g.Next(context.Background(), v, nil, asked, "")
		require.NoError(t, err)
		assert.NotEmpty(t, q)
		assert.Contains(t, v.Questions, q)
	}
	assert.Equal(t, len(v.Questions), asked.Len())
}

type panickingModel struct{ calls int }

func (m *panickingModel) GenerateContent(context.Context, string, string) (string, error) {
	m.calls++
	panic("model crashed")
}

func TestNextFallsBackWhenModelPanics(t *testing.T) {
	v := testVacancy()
	model := &panickingModel{}
	g := NewQuestionGenerator(model, zap.NewNop())
	asked := NewAsked(v.Questions[0])

	first, err := g.Next(context.Background(), v, nil, asked, "")
	require.NoError(t, err)
	second, err := g.Next(context.Background(), v, nil, asked, "")
	require.NoError(t, err)

	assert.ElementsMatch(t, v.Questions[1:], []string{first, second})
	assert.Equal(t, 3, asked.Len())
	// A panic ends the attempts like any hard error.
	assert.Equal(t, 2, model.calls)
}

func TestFallbackEmptyBank(t *testing.T) {
	v := testVacancy()
	v.Questions = nil

	_, err := NewQuestionGenerator(nil, zap.NewNop()).Next(context.Background(), v, nil, NewAsked(), "")
	assert.ErrorIs(t, err, ErrNoQuestion)
}

func TestNextNeverRepeats(t *testing.T) {
	v := testVacancy()
	replies := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		replies = append(replies, fmt.Sprintf("Вопрос номер %d?", i%4))
	}
	model := &scriptedModel{replies: replies}
	g := NewQuestionGenerator(model, zap.NewNop())
	asked := NewAsked()

	seen := map[string]bool{}
	for i := 0; i < 7; i++ {
		q, err := g.Next(context.Background(), v, nil, asked, "")
		require.NoError(t, err)
		if seen[q] {
			// Only a forced fallback may repeat, and only from the bank.
			assert.Contains(t, v.Questions, q)
			continue
		}
		seen[q] = true
		assert.True(t, strings.HasSuffix(q, "?"))
		assert.Greater(t, len([]rune(q)), minQuestionLength)
	}
}

func TestAskedLast(t *testing.T) {
	a := NewAsked("a", "b", "a", "c")
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []string{"b", "c"}, a.Last(2))
	assert.Equal(t, []string{"a", "b", "c"}, a.Last(12))
}

func TestBuildPromptWindow(t *testing.T) {
	history := make([]DialogueTurn, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, DialogueTurn{Question: fmt.Sprintf("q%d?", i), Answer: fmt.Sprintf("a%d", i)})
	}

	prompt := BuildPrompt(testVacancy(), history, NewAsked(), "")

	assert.NotContains(t, prompt, "HR: q3?")
	assert.Contains(t, prompt, "HR: q4?")
	assert.Contains(t, prompt, "Кандидат: a9")
	assert.Contains(t, prompt, "Ранее заданные вопросы (не повторяй их):\nНет")
}

package interview

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/hr-screener/internal/ai"
	"github.com/spigell/hr-screener/internal/utils"
	"github.com/spigell/hr-screener/internal/vacancy"
	"go.uber.org/zap"
)

//go:embed prompts/question.md
var questionPrompt string

// ErrNoQuestion means generation failed and the vacancy has no bank to fall back to.
var ErrNoQuestion = errors.New("no question available")

const (
	maxGenerationAttempts = 3
	promptWindow          = 12
	minQuestionLength     = 5
	maxLogLength          = 500

	retryInstruction = "Ты уже задавал этот вопрос или он некорректен, придумай другой."
)

var (
	labelPrefix = regexp.MustCompile(`(?i)^(Примеры вопросов|Вопрос:|Example questions:)\s*`)
	listMarker  = regexp.MustCompile(`^(?:[-*]|\d+[.)]?|[.)])\s*`)
)

// Asked is the ordered set of questions already put to the candidate.
type Asked struct {
	order []string
	seen  map[string]struct{}
}

func NewAsked(questions ...string) *Asked {
	a := &Asked{seen: make(map[string]struct{})}
	for _, q := range questions {
		a.Add(q)
	}
	return a
}

func (a *Asked) Add(q string) {
	if a.seen == nil {
		a.seen = make(map[string]struct{})
	}
	if _, ok := a.seen[q]; ok {
		return
	}
	a.seen[q] = struct{}{}
	a.order = append(a.order, q)
}

func (a *Asked) Contains(q string) bool {
	_, ok := a.seen[q]
	return ok
}

func (a *Asked) Len() int { return len(a.order) }

// Last returns up to n most recent questions, oldest first.
func (a *Asked) Last(n int) []string {
	if n >= len(a.order) {
		return append([]string(nil), a.order...)
	}
	return append([]string(nil), a.order[len(a.order)-n:]...)
}

// QuestionGenerator asks the language model for the next adaptive question and falls back
// to the vacancy question bank.
type QuestionGenerator struct {
	model  ai.TextGenerator
	logger *zap.Logger
	intN   func(n int) int
}

func NewQuestionGenerator(model ai.TextGenerator, logger *zap.Logger) *QuestionGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionGenerator{model: model, logger: logger, intN: rand.IntN}
}

// Next returns a question not yet in asked and records it there.
func (g *QuestionGenerator) Next(ctx context.Context, v *vacancy.Vacancy, history []DialogueTurn, asked *Asked, previousAnswer string) (string, error) {
	if v == nil {
		return "", errors.New("vacancy is required")
	}
	if asked == nil {
		asked = NewAsked()
	}

	if g.model != nil {
		prompt := BuildPrompt(v, history, asked, previousAnswer)

		for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
			g.logger.Debug("question prompt",
				zap.Int("attempt", attempt),
				zap.String("prompt_preview", utils.TruncateForLog(prompt, maxLogLength)),
			)

			raw, err := g.generate(ctx, prompt)
			if err != nil {
				g.logger.Error("question generation failed", zap.Int("attempt", attempt), zap.Error(err))
				break
			}

			question := NormalizeQuestion(raw)
			if acceptable(question, asked) {
				asked.Add(question)
				g.logger.Info("question generated", zap.String("question", question))
				return question, nil
			}

			g.logger.Warn("question rejected",
				zap.Int("attempt", attempt),
				zap.String("question", question),
				zap.String("raw", utils.TruncateForLog(raw, maxLogLength)),
			)
			prompt += "\n" + retryInstruction
		}
	}

	return g.fallback(v, asked)
}

// generate calls the model, turning a panic into an error so the bank fallback still runs.
func (g *QuestionGenerator) generate(ctx context.Context, prompt string) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = "", fmt.Errorf("question model panicked: %v", r)
		}
	}()
	return g.model.GenerateContent(ctx, questionPrompt, prompt)
}

func (g *QuestionGenerator) fallback(v *vacancy.Vacancy, asked *Asked) (string, error) {
	return bankQuestion(v, asked, g.intN, g.logger)
}

// bankQuestion picks a random vacancy question not yet asked, or any bank question once
// all were asked, and records it in asked.
func bankQuestion(v *vacancy.Vacancy, asked *Asked, intN func(int) int, log *zap.Logger) (string, error) {
	if v == nil {
		return "", ErrNoQuestion
	}
	if len(v.Questions) == 0 {
		return "", fmt.Errorf("vacancy %s: %w", v.ID, ErrNoQuestion)
	}

	candidates := make([]string, 0, len(v.Questions))
	for _, q := range v.Questions {
		if !asked.Contains(q) {
			candidates = append(candidates, q)
		}
	}

	forced := len(candidates) == 0
	if forced {
		candidates = v.Questions
	}

	question := candidates[intN(len(candidates))]
	asked.Add(question)

	if forced {
		log.Warn("question bank exhausted, repeating a bank question", zap.String("question", question))
	} else {
		log.Info("fallback question used", zap.String("question", question))
	}

	return question, nil
}

// NormalizeQuestion strips labels and list markers and keeps the text up to the first question mark.
func NormalizeQuestion(text string) string {
	text = strings.TrimSpace(text)
	text = labelPrefix.ReplaceAllString(text, "")
	text = listMarker.ReplaceAllString(text, "")
	if idx := strings.Index(text, "?"); idx >= 0 {
		text = text[:idx+1]
	}
	return strings.TrimSpace(text)
}

func acceptable(question string, asked *Asked) bool {
	return question != "" &&
		!asked.Contains(question) &&
		utf8.RuneCountInString(question) > minQuestionLength &&
		strings.HasSuffix(question, "?")
}

// BuildPrompt renders the generation request for the next question.
func BuildPrompt(v *vacancy.Vacancy, history []DialogueTurn, asked *Asked, previousAnswer string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Вакансия: %s\n", v.Title)
	fmt.Fprintf(&b, "Требования: %s\n", strings.Join(v.Requirements, ", "))
	fmt.Fprintf(&b, "Обязанности: %s\n\n", strings.Join(v.Duties, ", "))

	lines := make([]string, 0, len(history)*2)
	for _, turn := range history {
		lines = append(lines, turn.Lines()...)
	}
	b.WriteString("История диалога:\n")
	if len(lines) == 0 {
		b.WriteString("Диалог ещё не начат.")
	} else {
		if len(lines) > promptWindow {
			lines = lines[len(lines)-promptWindow:]
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	b.WriteString("\n\nРанее заданные вопросы (не повторяй их):\n")
	if prev := asked.Last(promptWindow); len(prev) > 0 {
		b.WriteString(strings.Join(prev, "\n"))
	} else {
		b.WriteString("Нет")
	}

	fmt.Fprintf(&b, "\n\nПредыдущий ответ кандидата (учти его для адаптации): %s\n\n", previousAnswer)
	b.WriteString("Сформулируй ровно ОДИН новый вопрос на русском языке. Только вопрос, без лишнего текста.")

	return b.String()
}

// Package interview runs the adaptive voice interview.
package interview

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/spigell/hr-screener/internal/logger"
	"github.com/spigell/hr-screener/internal/speech"
	"github.com/spigell/hr-screener/internal/utils"
	"github.com/spigell/hr-screener/internal/vacancy"
	"go.uber.org/zap"
)

// ErrNoSeedQuestions is reported when the vacancy has no question to open the interview with.
var ErrNoSeedQuestions = errors.New("vacancy has no seed questions")

var DefaultStopPhrases = []string{
	"всё, больше ничего", "закончил", "ничего больше", "все вопросы ответил",
	"всё", "все", "спасибо", "на этом все",
}

type Config struct {
	MaxTurns       int           `mapstructure:"turns"`
	CaptureTimeout time.Duration `mapstructure:"capture-timeout"`
	Chunk          time.Duration `mapstructure:"chunk"`
	Pause          time.Duration `mapstructure:"pause"`
	StopPhrases    []string      `mapstructure:"stop-phrases"`
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = 3
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = speech.DefaultTimeout
	}
	if c.Chunk <= 0 {
		c.Chunk = speech.DefaultChunk
	}
	if c.Pause < 0 {
		c.Pause = 0
	}
	if c.StopPhrases == nil {
		c.StopPhrases = DefaultStopPhrases
	}
	return c
}

// Listener captures one spoken answer.
type Listener interface {
	CaptureAndTranscribe(ctx context.Context, timeout, chunk time.Duration) speech.Capture
	Stop()
}

type questioner interface {
	Next(ctx context.Context, v *vacancy.Vacancy, history []DialogueTurn, asked *Asked, previousAnswer string) (string, error)
}

// Orchestrator drives ask, speak, listen, record and generate for every turn.
type Orchestrator struct {
	questions questioner
	listener  Listener
	speaker   speech.Speaker
	cfg       Config
	logger    *zap.Logger
	intN      func(n int) int

	sink     EventSink
	observer func(from, to State)

	mu    sync.Mutex
	state State
}

type Option func(*Orchestrator)

// WithEvents delivers the live interview log to sink.
func WithEvents(sink EventSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithObserver is called on every state transition.
func WithObserver(fn func(from, to State)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

func NewOrchestrator(questions questioner, listener Listener, speaker speech.Speaker, cfg Config, log *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		questions: questions,
		listener:  listener,
		speaker:   speaker,
		cfg:       cfg.withDefaults(),
		logger:    logger.WithFields(log),
		intN:      rand.IntN,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Stop ends the answer currently being captured. The turn itself still completes.
func (o *Orchestrator) Stop() {
	if o.listener != nil {
		o.listener.Stop()
	}
}

// Run conducts the interview. It returns exactly MaxTurns answers unless the vacancy has no seed
// questions, in which case it returns none together with ErrNoSeedQuestions.
func (o *Orchestrator) Run(ctx context.Context, v *vacancy.Vacancy) ([]Answer, error) {
	if v == nil || !v.HasQuestions() {
		o.emit(EventError, 0, "Ошибка: в вакансии нет вопросов!")
		o.setState(Finished)
		id := ""
		if v != nil {
			id = v.ID
		}
		o.logger.Error("vacancy has no seed questions", zap.String(logger.FieldVacancy, id))
		return []Answer{}, ErrNoSeedQuestions
	}

	maxTurns := o.cfg.MaxTurns
	answers := make([]Answer, 0, maxTurns)
	history := make([]DialogueTurn, 0, maxTurns)

	question := v.Questions[0]
	asked := NewAsked(question)

	o.logger.Info("interview started", zap.String(logger.FieldVacancy, v.ID), zap.Int("turns", maxTurns))

	for turn := 1; turn <= maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("interview interrupted", zap.Int(logger.FieldTurn, turn), zap.Error(err))
			for ; turn <= maxTurns; turn++ {
				answers = append(answers, Answer{Question: question, Failed: true})
				question = ""
			}
			break
		}

		answer, err := o.playTurn(ctx, turn, question)
		if err != nil {
			o.logger.Error("interview turn failed", zap.Int(logger.FieldTurn, turn), zap.Error(err))
			o.emit(EventError, turn, fmt.Sprintf("Критическая ошибка в цикле интервью: %v", err))
		}
		answers = append(answers, answer)
		o.logger.Info("answer recorded",
			zap.Int(logger.FieldTurn, turn),
			zap.String("answer", utils.TruncateForLog(answer.Text, maxLogLength)),
			zap.Float64("duration", answer.Duration),
		)

		o.setState(ScoringTurn)
		if turn == maxTurns {
			break
		}

		history = append(history, DialogueTurn{Question: question, Answer: answer.Text})
		next, err := o.nextQuestion(ctx, v, history, asked, answer.Text)
		if err != nil {
			o.logger.Error("next question unavailable, using the question bank", zap.Int(logger.FieldTurn, turn), zap.Error(err))
			o.emit(EventError, turn, fmt.Sprintf("Ошибка генерации вопроса: %v", err))
			next, err = bankQuestion(v, asked, o.intN, o.logger)
		}
		if err != nil {
			o.logger.Error("question bank unavailable, repeating the previous question", zap.Int(logger.FieldTurn, turn), zap.Error(err))
		} else {
			question = next
		}

		if err := utils.WaitFor(ctx, o.cfg.Pause); err != nil {
			o.logger.Debug("pause interrupted", zap.Error(err))
		}
	}

	o.setState(Finished)
	o.emit(EventFinished, 0, "Интервью завершено.")
	o.logger.Info("interview finished", zap.Int("answers", len(answers)))

	return answers, nil
}

// playTurn asks one question and records the answer. A panic yields an empty failed answer.
func (o *Orchestrator) playTurn(ctx context.Context, turn int, question string) (answer Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			answer = Answer{Question: question, Failed: true}
			err = fmt.Errorf("turn %d panicked: %v", turn, r)
		}
	}()

	o.setState(AskingQuestion)
	o.emit(EventQuestion, turn, fmt.Sprintf("Вопрос %d: %s", turn, question))
	o.speak(ctx, turn, question)

	capture := o.listen(ctx)

	answer = Answer{
		Question:        question,
		Text:            strings.TrimSpace(capture.Text),
		Duration:        capture.Duration.Seconds(),
		StoppedManually: capture.StoppedManually,
	}

	if answer.StoppedManually {
		o.emit(EventAnswer, turn, "Запись остановлена пользователем, переходим к следующему вопросу.")
	}
	if answer.Text != "" {
		o.emit(EventAnswer, turn, fmt.Sprintf("Ответ кандидата: %s (длительность: %.1fs)", answer.Text, answer.Duration))
	} else {
		o.emit(EventAnswer, turn, "Ответ не получен или пустой.")
	}

	if phrase := o.stopPhrase(answer.Text); phrase != "" {
		o.logger.Info("stop phrase detected", zap.Int(logger.FieldTurn, turn), zap.String("phrase", phrase))
		o.emit(EventStopPhrase, turn, phrase)
	}

	return answer, nil
}

func (o *Orchestrator) speak(ctx context.Context, turn int, question string) {
	if o.speaker == nil {
		return
	}
	if err := o.speaker.Speak(ctx, question); err != nil {
		o.logger.Warn("speaking question failed", zap.Int(logger.FieldTurn, turn), zap.Error(err))
		o.emit(EventError, turn, fmt.Sprintf("Ошибка озвучивания: %v", err))
	}
}

func (o *Orchestrator) listen(ctx context.Context) speech.Capture {
	o.emit(EventEnableStop, 0, string(EventEnableStop))
	defer o.emit(EventDisableStop, 0, string(EventDisableStop))

	o.setState(AwaitingAnswer)
	if o.listener == nil {
		return speech.Capture{}
	}
	return o.listener.CaptureAndTranscribe(ctx, o.cfg.CaptureTimeout, o.cfg.Chunk)
}

func (o *Orchestrator) nextQuestion(ctx context.Context, v *vacancy.Vacancy, history []DialogueTurn, asked *Asked, previousAnswer string) (question string, err error) {
	defer func() {
		if r := recover(); r != nil {
			question, err = "", fmt.Errorf("question generation panicked: %v", r)
		}
	}()

	if o.questions == nil {
		return "", errors.New("question generator is not configured")
	}
	return o.questions.Next(ctx, v, history, asked, previousAnswer)
}

func (o *Orchestrator) stopPhrase(text string) string {
	low := strings.ToLower(text)
	if low == "" {
		return ""
	}
	for _, phrase := range o.cfg.StopPhrases {
		if p := strings.ToLower(strings.TrimSpace(phrase)); p != "" && strings.Contains(low, p) {
			return p
		}
	}
	return ""
}

func (o *Orchestrator) setState(next State) {
	o.mu.Lock()
	prev := o.state
	o.state = next
	o.mu.Unlock()

	if prev == next {
		return
	}
	o.logger.Debug("interview state", zap.Stringer("from", prev), zap.Stringer("to", next))
	if o.observer != nil {
		o.observer(prev, next)
	}
}

func (o *Orchestrator) emit(kind EventKind, turn int, message string) {
	if o.sink == nil {
		return
	}
	o.sink(Event{Kind: kind, Turn: turn, Message: message})
}

package scoring

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/spigell/hr-screener/internal/ai"
	"go.uber.org/zap"
)

const (
	RequirementWeight = 0.6
	RelevanceWeight   = 0.2
	SpecificityWeight = 0.2

	sentimentStrong   = 0.7
	sentimentHesitant = 0.4

	minSpecificWords = 10
	minAnswerWords   = 3
	longAnswerSecs   = 60.0
)

const (
	StrongPositive     = "Позитивный настрой в ответе"
	StrongRelevant     = "Ответ релевантен вопросу"
	StrongSpecific     = "Конкретный ответ с примерами"
	StrongCommunicator = "Хорошие коммуникативные навыки"

	GapNegative    = "Негативный тон ответа"
	GapHesitant    = "Неуверенный тон ответа"
	GapIrrelevant  = "Ответ не полностью релевантен вопросу"
	GapGeneric     = "Ответ слишком общий или короткий"
	GapTooShort    = "Слишком короткий ответ"
	GapAnalysisErr = "Ошибка анализа ответов"
)

// Signal is one scoring step applied to every answer.
type Signal interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	// MaxWeight is the most the signal can add for a single answer.
	MaxWeight(requirements int) float64
	Apply(ctx context.Context, deps Deps, turn Turn, tally *Tally) error
}

type matcher interface {
	LemmaOverlap(a, b string) bool
	SemanticMatch(ctx context.Context, a, b string, threshold float64) bool
}

// Deps aggregates dependencies shared across all signals.
type Deps struct {
	Matcher      matcher
	Sentiment    ai.SentimentClassifier
	Logger       *zap.Logger
	Requirements []string
}

// Turn is the answer under evaluation.
type Turn struct {
	Index    int
	Question string
	Answer   string
	Duration float64
}

func (t Turn) words() []string {
	return strings.Fields(t.Answer)
}

// Tally accumulates the outcome of all signals over the interview.
type Tally struct {
	Weight       float64
	Matched      []string
	StrongPoints []string
	Gaps         []string

	matched map[string]struct{}
}

func (t *Tally) strong(point string) { t.StrongPoints = append(t.StrongPoints, point) }

func (t *Tally) gap(point string) { t.Gaps = append(t.Gaps, point) }

// match records req once and reports whether it was new.
func (t *Tally) match(req string) bool {
	if t.matched == nil {
		t.matched = make(map[string]struct{})
	}
	if _, ok := t.matched[req]; ok {
		return false
	}
	t.matched[req] = struct{}{}
	t.Matched = append(t.Matched, req)
	return true
}

func (t *Tally) isMatched(req string) bool {
	_, ok := t.matched[req]
	return ok
}

// Status represents runtime information about a signal.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string, details map[string]string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason, Details: details}
}

// DisableByName marks a signal with the provided name as disabled while keeping it in the list.
func DisableByName(signals []Signal, name, reason string) {
	for _, s := range signals {
		if s.Name() == name {
			s.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided signals.
func Describe(signals []Signal) []Status {
	statuses := make([]Status, 0, len(signals))
	for _, s := range signals {
		if reporter, ok := s.(interface{ Status() Status }); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: s.Name(), Enabled: s.IsEnabled()})
	}
	return statuses
}

// DefaultSignals returns the signal pipeline in evaluation order.
func DefaultSignals(cfg AnswerConfig) []Signal {
	cfg = cfg.withDefaults()
	return []Signal{
		&sentimentSignal{},
		&requirementsSignal{threshold: cfg.Threshold},
		&relevanceSignal{threshold: cfg.Threshold},
		&specificitySignal{markers: lower(cfg.ExampleMarkers), terms: lower(cfg.TechTerms)},
		&brevitySignal{},
	}
}

type sentimentSignal struct{ toggle }

func (s *sentimentSignal) Name() string { return "sentiment" }

func (s *sentimentSignal) MaxWeight(int) float64 { return 0 }

func (s *sentimentSignal) Status() Status { return s.status(s.Name(), nil) }

func (s *sentimentSignal) Apply(ctx context.Context, deps Deps, turn Turn, tally *Tally) error {
	if strings.TrimSpace(turn.Answer) == "" {
		return nil
	}
	if deps.Sentiment == nil || !deps.Sentiment.Available() {
		deps.Logger.Warn("sentiment analysis is unavailable", zap.Int("turn", turn.Index))
		return nil
	}

	sentiment, err := deps.Sentiment.Classify(ctx, turn.Answer)
	if err != nil {
		deps.Logger.Warn("sentiment analysis failed", zap.Int("turn", turn.Index), zap.Error(err))
		return nil
	}

	deps.Logger.Debug("sentiment",
		zap.Int("turn", turn.Index),
		zap.String("label", string(sentiment.Label)),
		zap.Float64("confidence", sentiment.Confidence),
	)

	switch {
	case sentiment.Label == ai.SentimentPositive && sentiment.Confidence > sentimentStrong:
		tally.strong(StrongPositive)
	case sentiment.Label == ai.SentimentNegative && sentiment.Confidence > sentimentStrong:
		tally.gap(GapNegative)
	case sentiment.Confidence < sentimentHesitant:
		tally.gap(GapHesitant)
	}
	return nil
}

type requirementsSignal struct {
	toggle
	threshold float64
}

func (s *requirementsSignal) Name() string { return "requirements" }

func (s *requirementsSignal) MaxWeight(requirements int) float64 {
	return RequirementWeight * float64(requirements)
}

func (s *requirementsSignal) Status() Status {
	return s.status(s.Name(), map[string]string{"threshold": strconv.FormatFloat(s.threshold, 'f', -1, 64)})
}

func (s *requirementsSignal) Apply(ctx context.Context, deps Deps, turn Turn, tally *Tally) error {
	if strings.TrimSpace(turn.Answer) == "" {
		return nil
	}
	for _, req := range deps.Requirements {
		if tally.isMatched(req) {
			continue
		}
		if deps.Matcher.LemmaOverlap(req, turn.Answer) || deps.Matcher.SemanticMatch(ctx, req, turn.Answer, s.threshold) {
			if tally.match(req) {
				tally.Weight += RequirementWeight
				deps.Logger.Debug("requirement confirmed by answer", zap.Int("turn", turn.Index), zap.String("requirement", req))
			}
		}
	}
	return nil
}

type relevanceSignal struct {
	toggle
	threshold float64
}

func (s *relevanceSignal) Name() string { return "relevance" }

func (s *relevanceSignal) MaxWeight(int) float64 { return RelevanceWeight }

func (s *relevanceSignal) Status() Status {
	return s.status(s.Name(), map[string]string{"threshold": strconv.FormatFloat(s.threshold, 'f', -1, 64)})
}

func (s *relevanceSignal) Apply(ctx context.Context, deps Deps, turn Turn, tally *Tally) error {
	if deps.Matcher.SemanticMatch(ctx, turn.Question, turn.Answer, s.threshold) {
		tally.Weight += RelevanceWeight
		tally.strong(StrongRelevant)
		return nil
	}
	tally.gap(GapIrrelevant)
	return nil
}

type specificitySignal struct {
	toggle
	markers []string
	terms   []string
}

func (s *specificitySignal) Name() string { return "specificity" }

func (s *specificitySignal) MaxWeight(int) float64 { return SpecificityWeight }

func (s *specificitySignal) Status() Status {
	return s.status(s.Name(), map[string]string{
		"example_markers": strings.Join(s.markers, ","),
		"tech_terms":      strings.Join(s.terms, ","),
	})
}

func (s *specificitySignal) Apply(_ context.Context, _ Deps, turn Turn, tally *Tally) error {
	if len(turn.words()) > minSpecificWords && s.concrete(turn.Answer) {
		tally.Weight += SpecificityWeight
		tally.strong(StrongSpecific)
		return nil
	}
	tally.gap(GapGeneric)
	return nil
}

func (s *specificitySignal) concrete(answer string) bool {
	if strings.IndexFunc(answer, unicode.IsDigit) >= 0 {
		return true
	}
	low := strings.ToLower(answer)
	return containsAny(low, s.markers) || containsAny(low, s.terms)
}

type brevitySignal struct{ toggle }

func (s *brevitySignal) Name() string { return "brevity" }

func (s *brevitySignal) MaxWeight(int) float64 { return 0 }

func (s *brevitySignal) Status() Status {
	return s.status(s.Name(), map[string]string{
		"min_words":        strconv.Itoa(minAnswerWords),
		"long_answer_secs": fmt.Sprintf("%.0f", longAnswerSecs),
	})
}

func (s *brevitySignal) Apply(_ context.Context, _ Deps, turn Turn, tally *Tally) error {
	if len(turn.words()) < minAnswerWords {
		tally.gap(GapTooShort)
	}
	if turn.Duration > longAnswerSecs {
		tally.strong(StrongCommunicator)
	}
	return nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lower(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

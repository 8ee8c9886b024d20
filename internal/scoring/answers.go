package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/hr-screener/internal/ai"
	"github.com/spigell/hr-screener/internal/interview"
	"github.com/spigell/hr-screener/internal/utils"
	"github.com/spigell/hr-screener/internal/vacancy"
	"go.uber.org/zap"
)

var (
	DefaultTechTerms      = []string{"python", "crm", "ai", "модель", "беспилотник", "автоматизация"}
	DefaultExampleMarkers = []string{"пример", "например"}
)

// AnswerConfig tunes the answer signals.
type AnswerConfig struct {
	Threshold      float64  `mapstructure:"threshold"`
	TechTerms      []string `mapstructure:"tech-terms"`
	ExampleMarkers []string `mapstructure:"example-markers"`
	Disabled       []string `mapstructure:"disabled-signals"`
}

func (c AnswerConfig) withDefaults() AnswerConfig {
	if c.Threshold <= 0 {
		c.Threshold = 0.5
	}
	if len(c.TechTerms) == 0 {
		c.TechTerms = DefaultTechTerms
	}
	if len(c.ExampleMarkers) == 0 {
		c.ExampleMarkers = DefaultExampleMarkers
	}
	return c
}

type InterviewResult struct {
	Score        float64  `json:"score"`
	Matched      []string `json:"matched"`
	Missing      []string `json:"missing"`
	StrongPoints []string `json:"strong_points"`
	Gaps         []string `json:"gaps"`
}

// AnswerScorer runs the signal pipeline over interview answers.
type AnswerScorer struct {
	matcher   matcher
	sentiment ai.SentimentClassifier
	signals   []Signal
	logger    *zap.Logger
}

func NewAnswerScorer(m matcher, sentiment ai.SentimentClassifier, cfg AnswerConfig, logger *zap.Logger) *AnswerScorer {
	if logger == nil {
		logger = zap.NewNop()
	}

	signals := DefaultSignals(cfg)
	for _, name := range cfg.Disabled {
		DisableByName(signals, name, "disabled by configuration")
	}

	return &AnswerScorer{matcher: m, sentiment: sentiment, signals: signals, logger: logger}
}

func (s *AnswerScorer) Signals() []Signal {
	return s.signals
}

// Score never fails: any error yields a zero score with every requirement missing.
func (s *AnswerScorer) Score(ctx context.Context, answers []interview.Answer, v *vacancy.Vacancy) (result InterviewResult) {
	requirements := []string{}
	if v != nil {
		requirements = v.DistinctRequirements()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("interview analysis failed", zap.Any("panic", r))
			result = failedInterview(requirements)
		}
	}()

	result, err := s.score(ctx, answers, requirements)
	if err != nil {
		s.logger.Error("interview analysis failed", zap.Error(err))
		return failedInterview(requirements)
	}

	s.logger.Info("interview analysed",
		zap.Float64("score", result.Score),
		zap.Strings("matched", result.Matched),
		zap.Strings("strong_points", result.StrongPoints),
		zap.Strings("gaps", result.Gaps),
	)
	return result
}

func (s *AnswerScorer) score(ctx context.Context, answers []interview.Answer, requirements []string) (InterviewResult, error) {
	if s.matcher == nil {
		return InterviewResult{}, errors.New("matcher is not configured")
	}

	deps := Deps{
		Matcher:      s.matcher,
		Sentiment:    s.sentiment,
		Logger:       s.logger,
		Requirements: requirements,
	}

	tally := &Tally{}
	for i, answer := range answers {
		turn := Turn{Index: i + 1, Question: answer.Question, Answer: answer.Text, Duration: answer.Duration}
		for _, signal := range s.signals {
			if !signal.IsEnabled() {
				continue
			}
			if err := signal.Apply(ctx, deps, turn, tally); err != nil {
				return InterviewResult{}, fmt.Errorf("%s: %w", signal.Name(), err)
			}
		}
	}

	var perTurn float64
	for _, signal := range s.signals {
		if signal.IsEnabled() {
			perTurn += signal.MaxWeight(len(requirements))
		}
	}
	maxPossible := float64(len(answers)) * perTurn

	result := InterviewResult{
		Matched:      append([]string{}, tally.Matched...),
		Missing:      []string{},
		StrongPoints: utils.Unique(tally.StrongPoints),
		Gaps:         utils.Unique(tally.Gaps),
	}
	for _, req := range requirements {
		if !tally.isMatched(req) {
			result.Missing = append(result.Missing, req)
		}
	}
	if maxPossible > 0 {
		result.Score = utils.Round1(tally.Weight / maxPossible * 100)
	}

	s.logger.Debug("interview tally",
		zap.Float64("weight", tally.Weight),
		zap.Float64("max_possible", maxPossible),
	)

	return result, nil
}

func failedInterview(requirements []string) InterviewResult {
	return InterviewResult{
		Score:        0,
		Matched:      []string{},
		Missing:      append([]string{}, requirements...),
		StrongPoints: []string{},
		Gaps:         []string{GapAnalysisErr},
	}
}

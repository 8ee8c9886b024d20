// Package scoring rates résumés and interview answers against vacancy requirements.
package scoring

import (
	"context"
	"fmt"

	"github.com/spigell/hr-screener/internal/matching"
	"github.com/spigell/hr-screener/internal/utils"
	"github.com/spigell/hr-screener/internal/vacancy"
	"go.uber.org/zap"
)

type ResumeResult struct {
	Vacancy string   `json:"vacancy"`
	Score   float64  `json:"score"`
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// ResumeScorer measures requirement coverage of a résumé.
type ResumeScorer struct {
	engine    *matching.Engine
	threshold float64
	logger    *zap.Logger
}

func NewResumeScorer(engine *matching.Engine, logger *zap.Logger) *ResumeScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResumeScorer{engine: engine, threshold: matching.ResumeThreshold, logger: logger}
}

// Score never fails: on any internal error every requirement is reported missing with a zero score.
func (s *ResumeScorer) Score(ctx context.Context, resumeText string, v *vacancy.Vacancy) (result ResumeResult) {
	requirements := []string{}
	if v != nil {
		result.Vacancy = v.Title
		requirements = v.DistinctRequirements()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("resume analysis failed", zap.Any("panic", r))
			result = failedResume(result.Vacancy, requirements)
		}
	}()

	if s.engine == nil {
		s.logger.Error("resume analysis failed", zap.Error(fmt.Errorf("matching engine is not configured")))
		return failedResume(result.Vacancy, requirements)
	}

	result.Matched = []string{}
	result.Missing = []string{}

	resumeLemmas := s.engine.LemmaSet(resumeText)
	for _, req := range requirements {
		if s.engine.OverlapsLemmas(req, resumeLemmas) ||
			matching.PartialMatch(req, resumeText) ||
			s.engine.SemanticMatch(ctx, req, resumeText, s.threshold) {
			result.Matched = append(result.Matched, req)
		} else {
			result.Missing = append(result.Missing, req)
		}
	}

	if len(requirements) > 0 {
		result.Score = utils.Round1(float64(len(result.Matched)) / float64(len(requirements)) * 100)
	}

	s.logger.Info("resume analysed",
		zap.Float64("score", result.Score),
		zap.Strings("matched", result.Matched),
		zap.Strings("missing", result.Missing),
		zap.String("resume_preview", utils.TruncateForLog(resumeText, 500)),
	)

	return result
}

func failedResume(title string, requirements []string) ResumeResult {
	return ResumeResult{
		Vacancy: title,
		Score:   0,
		Matched: []string{},
		Missing: append([]string{}, requirements...),
	}
}

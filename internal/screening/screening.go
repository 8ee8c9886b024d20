// Package screening runs a complete candidate session: résumé analysis, the voice interview,
// scoring, the report and its persistence.
package screening

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spigell/hr-screener/internal/extract"
	"github.com/spigell/hr-screener/internal/interview"
	"github.com/spigell/hr-screener/internal/logger"
	"github.com/spigell/hr-screener/internal/report"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/speech"
	"github.com/spigell/hr-screener/internal/storage"
	"github.com/spigell/hr-screener/internal/vacancy"
	"go.uber.org/zap"
)

const farewell = "Интервью завершено."

var ErrNameRequired = errors.New("candidate name is required")

type resumeScorer interface {
	Score(ctx context.Context, resumeText string, v *vacancy.Vacancy) scoring.ResumeResult
}

type answerScorer interface {
	Score(ctx context.Context, answers []interview.Answer, v *vacancy.Vacancy) scoring.InterviewResult
}

type interviewer interface {
	Run(ctx context.Context, v *vacancy.Vacancy) ([]interview.Answer, error)
}

type recorder interface {
	Save(ctx context.Context, record *storage.CandidateRecord) error
}

// Session is the input of one screening.
type Session struct {
	FullName   string
	ResumePath string
	VacancyID  string
}

type Result struct {
	SessionID uuid.UUID
	Resume    scoring.ResumeResult
	Answers   []interview.Answer
	Interview scoring.InterviewResult
	Report    report.Report
	Text      string
	// SaveErr is set when the candidate could not be persisted. The report is still valid.
	SaveErr error
}

type Deps struct {
	Vacancies   *vacancy.Vacancies
	Resumes     resumeScorer
	Interviewer interviewer
	Answers     answerScorer
	Speaker     speech.Speaker
	Store       recorder
	Logger      *zap.Logger
}

type Service struct {
	vacancies   *vacancy.Vacancies
	resumes     resumeScorer
	interviewer interviewer
	answers     answerScorer
	speaker     speech.Speaker
	store       recorder
	extract     func(path string) (string, error)
	logger      *zap.Logger
}

func New(deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		vacancies:   deps.Vacancies,
		resumes:     deps.Resumes,
		interviewer: deps.Interviewer,
		answers:     deps.Answers,
		speaker:     deps.Speaker,
		store:       deps.Store,
		extract:     extract.Text,
		logger:      log,
	}
}

// AnalyzeResume scores the résumé at path against one vacancy without interviewing.
func (s *Service) AnalyzeResume(ctx context.Context, path, vacancyID string) (scoring.ResumeResult, string, error) {
	v, err := s.vacancy(vacancyID)
	if err != nil {
		return scoring.ResumeResult{}, "", err
	}

	text, err := s.extract(path)
	if err != nil {
		return scoring.ResumeResult{}, "", fmt.Errorf("read resume: %w", err)
	}

	return s.resumes.Score(ctx, text, v), text, nil
}

// Run screens one candidate. Input errors abort the session; everything after the résumé is
// read degrades instead of failing.
func (s *Service) Run(ctx context.Context, session Session) (*Result, error) {
	name := strings.TrimSpace(session.FullName)
	if name == "" {
		return nil, ErrNameRequired
	}

	id := uuid.New()
	log := logger.WithSession(s.logger, id.String(), session.VacancyID)

	resume, text, err := s.AnalyzeResume(ctx, session.ResumePath, session.VacancyID)
	if err != nil {
		return nil, err
	}
	log.Info("resume analysed",
		zap.Float64("score", resume.Score),
		zap.Strings("matched", resume.Matched),
		zap.Strings("missing", resume.Missing),
	)

	// The vacancy was already resolved by AnalyzeResume.
	v, _ := s.vacancy(session.VacancyID)

	answers, err := s.interviewer.Run(ctx, v)
	if err != nil {
		log.Warn("interview ended without answers", zap.Error(err))
	}

	result := &Result{
		SessionID: id,
		Resume:    resume,
		Answers:   answers,
		Interview: s.answers.Score(ctx, answers, v),
	}
	result.Report = report.Compose(resume, result.Interview)
	result.Text = report.Render(result.Report)

	log.Info("screening finished",
		zap.Float64("score", result.Report.Score),
		zap.String("recommendation", string(result.Report.Recommendation)),
	)

	s.say(ctx, log, farewell)

	record, err := newRecord(id, name, text, session.VacancyID, result)
	if err == nil {
		err = s.save(ctx, record)
	}
	if err != nil {
		log.Error("saving candidate", zap.Error(err))
		result.SaveErr = err
	}

	return result, nil
}

func (s *Service) vacancy(id string) (*vacancy.Vacancy, error) {
	if s.vacancies == nil {
		return nil, fmt.Errorf("find vacancy %q: %w", id, vacancy.ErrNotFound)
	}
	v, err := s.vacancies.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("find vacancy %q: %w", id, err)
	}
	return v, nil
}

func (s *Service) say(ctx context.Context, log *zap.Logger, text string) {
	if s.speaker == nil {
		return
	}
	if err := s.speaker.Speak(ctx, text); err != nil {
		log.Warn("speech output failed", zap.Error(err))
	}
}

func (s *Service) save(ctx context.Context, record *storage.CandidateRecord) error {
	if s.store == nil {
		return errors.New("storage is not configured")
	}
	return s.store.Save(ctx, record)
}

func newRecord(id uuid.UUID, name, resumeText, vacancyID string, result *Result) (*storage.CandidateRecord, error) {
	answers := result.Answers
	if answers == nil {
		answers = []interview.Answer{}
	}

	transcript, err := marshalJSON(answers)
	if err != nil {
		return nil, fmt.Errorf("encode interview: %w", err)
	}
	rep, err := marshalJSON(result.Report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	return &storage.CandidateRecord{
		SessionID:  id,
		FullName:   name,
		ResumeText: resumeText,
		VacancyID:  vacancyID,
		Interview:  transcript,
		Score:      result.Report.Score,
		Report:     rep,
		ReportText: result.Text,
	}, nil
}

// marshalJSON keeps non-ASCII text and markup characters readable in the stored document.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

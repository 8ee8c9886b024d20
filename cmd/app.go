package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spigell/hr-screener/internal/ai/gemini"
	"github.com/spigell/hr-screener/internal/interview"
	"github.com/spigell/hr-screener/internal/logger"
	"github.com/spigell/hr-screener/internal/matching"
	"github.com/spigell/hr-screener/internal/nlp"
	"github.com/spigell/hr-screener/internal/scoring"
	"github.com/spigell/hr-screener/internal/screening"
	"github.com/spigell/hr-screener/internal/secrets"
	"github.com/spigell/hr-screener/internal/speech"
	"github.com/spigell/hr-screener/internal/storage"
	"github.com/spigell/hr-screener/internal/vacancy"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// setup returns the logger and the decoded config, exiting on failure.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), viper.GetString("log-file"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}

func loadVacancies(config *Config, logger *zap.Logger) (*vacancy.Vacancies, error) {
	vacancies, err := vacancy.LoadFromFile(config.Vacancies)
	if err != nil {
		return nil, err
	}
	logger.Debug("vacancies loaded", zap.String("file", config.Vacancies), zap.Int("count", vacancies.Len()))
	return vacancies, nil
}

func resolveAPIKey(config *AIConfig) (string, error) {
	if config == nil {
		config = &AIConfig{}
	}
	return secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.APIKey,
		File:  config.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
}

func newProvider(config *Config, logger *zap.Logger) *gemini.Provider {
	return gemini.NewProvider(config.AI.Gemini, func() (string, error) {
		return resolveAPIKey(config.AI)
	}, logger)
}

func newEngine(config *Config, provider *gemini.Provider, logger *zap.Logger) *matching.Engine {
	return matching.NewEngine(nlp.New(config.AllowList, logger), gemini.NewEmbedder(provider), logger)
}

// session holds everything a screening run needs. Close releases the database.
type session struct {
	service      *screening.Service
	orchestrator *interview.Orchestrator
	answers      *scoring.AnswerScorer
	store        *storage.Store
}

func newSession(config *Config, vacancies *vacancy.Vacancies, sink interview.EventSink, logger *zap.Logger) *session {
	provider := newProvider(config, logger)
	engine := newEngine(config, provider, logger)

	audio := speech.NewPortAudio()
	listener := speech.NewRecognizer(audio, gemini.NewTranscriber(provider), config.Speech.Language, logger)

	var speaker speech.Speaker = speech.NewConsoleSpeaker(os.Stdout)
	if config.Speech.Voice {
		speaker = speech.NewVoiceSpeaker(gemini.NewSynthesizer(provider), audio, logger)
	}

	questions := interview.NewQuestionGenerator(gemini.NewQuestionModel(provider), logger)
	orchestrator := interview.NewOrchestrator(questions, listener, speaker, config.Interview, logger,
		interview.WithEvents(sink),
	)

	answers := scoring.NewAnswerScorer(engine, gemini.NewSentimentClassifier(provider), config.Scoring, logger)

	store, err := storage.Open(config.Database, logger)
	if err != nil {
		// Screening still works, the report just is not persisted.
		logger.Error("opening candidates database", zap.Error(err))
		store = nil
	}

	deps := screening.Deps{
		Vacancies:   vacancies,
		Resumes:     scoring.NewResumeScorer(engine, logger),
		Interviewer: orchestrator,
		Answers:     answers,
		Speaker:     speaker,
		Logger:      logger,
	}
	if store != nil {
		deps.Store = store
	}

	return &session{
		service:      screening.New(deps),
		orchestrator: orchestrator,
		answers:      answers,
		store:        store,
	}
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

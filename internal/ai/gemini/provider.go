package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/hr-screener/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultSpeechModel    = "gemini-2.5-flash-preview-tts"
	defaultVoice          = "Kore"
)

// Config selects the models used for each service.
type Config struct {
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	SpeechModel    string `mapstructure:"speech-model"`
	Voice          string `mapstructure:"voice"`
	MaxRetries     int    `mapstructure:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModel
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		c.EmbeddingModel = defaultEmbeddingModel
	}
	if strings.TrimSpace(c.SpeechModel) == "" {
		c.SpeechModel = defaultSpeechModel
	}
	if strings.TrimSpace(c.Voice) == "" {
		c.Voice = defaultVoice
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = defaultMaxLogLength
	}
	return c
}

// Provider creates the Gemini client on first use and shares it between services.
// Construction never touches the network; a missing key only makes the services unavailable.
type Provider struct {
	cfg    Config
	logger *zap.Logger
	init   func() (*Generator, error)

	once sync.Once
	gen  *Generator
	err  error
}

// NewProvider returns a lazy provider. loadKey is called once, on first use.
func NewProvider(cfg Config, loadKey func() (string, error), log *zap.Logger) *Provider {
	cfg = cfg.withDefaults()
	log = logger.WithCommonFields(log, ProviderName, cfg.Model)

	p := &Provider{cfg: cfg, logger: log}
	p.init = func() (*Generator, error) {
		if loadKey == nil {
			return nil, errors.New("gemini api key loader is not configured")
		}
		key, err := loadKey()
		if err != nil {
			return nil, fmt.Errorf("load gemini api key: %w", err)
		}
		// The API-key backend does not use the context beyond client construction.
		gen, err := NewGenerator(context.Background(), key, cfg.Model, cfg.MaxRetries, log)
		if err != nil {
			return nil, err
		}
		gen.maxLogLen = cfg.MaxLogLength
		return gen, nil
	}

	return p
}

// Generator returns the shared generator, initialising it on the first call.
func (p *Provider) Generator() (*Generator, error) {
	if p == nil {
		return nil, errors.New("gemini provider is nil")
	}

	p.once.Do(func() {
		if p.init == nil {
			p.err = errors.New("gemini provider is not initialized")
			return
		}
		p.gen, p.err = p.init()
		if p.err != nil {
			p.log().Warn("gemini services are unavailable", zap.Error(p.err))
		}
	})

	return p.gen, p.err
}

// Available reports whether the client could be created.
func (p *Provider) Available() bool {
	_, err := p.Generator()
	return err == nil
}

func (p *Provider) Config() Config {
	if p == nil {
		return Config{}.withDefaults()
	}
	return p.cfg.withDefaults()
}

func (p *Provider) log() *zap.Logger {
	if p.logger == nil {
		return zap.NewNop()
	}
	return p.logger
}

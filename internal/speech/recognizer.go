// Package speech captures and transcribes microphone audio and speaks interview questions.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spigell/hr-screener/internal/ai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	SampleRate      = 16000
	FramesPerBuffer = 1024

	DefaultTimeout  = 40 * time.Second
	DefaultChunk    = 5 * time.Second
	defaultLanguage = "ru-RU"
)

var ErrAlreadyCapturing = errors.New("capture already in progress")

// Capture is the outcome of one listening session.
type Capture struct {
	Text            string
	Duration        time.Duration
	StoppedManually bool
}

// Recognizer runs one capture session at a time. Stop may be called from any goroutine.
type Recognizer struct {
	source      Source
	transcriber ai.Transcriber
	language    string
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	stream InputStream
	state  captureState
}

// captureState is shared between the capture loop, partial transcriptions and Stop.
type captureState struct {
	recording       bool
	stoppedManually bool
	partials        []string
}

func NewRecognizer(source Source, transcriber ai.Transcriber, language string, logger *zap.Logger) *Recognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if language = strings.TrimSpace(language); language == "" {
		language = defaultLanguage
	}
	return &Recognizer{
		source:      source,
		transcriber: transcriber,
		language:    language,
		logger:      logger,
		now:         time.Now,
	}
}

// Start opens the input stream and resets the session state.
func (r *Recognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return ErrAlreadyCapturing
	}
	if r.source == nil {
		return errors.New("audio source is not configured")
	}

	stream, err := r.source.Open(SampleRate, FramesPerBuffer)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}

	r.stream = stream
	r.state = captureState{recording: true}
	r.logger.Info("microphone opened, recording started")
	return nil
}

// Stop ends the current capture early. It does nothing when no capture is running.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.recording {
		return
	}
	r.state.recording = false
	r.state.stoppedManually = true
	r.logger.Info("recording stopped manually")
}

func (r *Recognizer) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.recording
}

// CaptureAndTranscribe records until timeout, Stop, ctx cancellation or a stream failure,
// transcribing every chunk of audio in the background and the whole recording at the end.
// It never fails: errors degrade to whatever text was recognised.
func (r *Recognizer) CaptureAndTranscribe(ctx context.Context, timeout, chunk time.Duration) (capture Capture) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := r.now()
	if err := r.Start(); err != nil {
		r.logger.Error("capture failed to start", zap.Error(err))
		return Capture{}
	}

	partialCtx, cancelPartials := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(partialCtx)
	group.SetLimit(1)

	var samples []int16
	released := false

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("capture panicked", zap.Any("panic", rec))
			if !released {
				r.release()
			}
			cancelPartials()
			_ = group.Wait()
			capture = Capture{
				Text:            strings.Join(r.partials(), " "),
				Duration:        r.now().Sub(start),
				StoppedManually: r.stoppedManually(),
			}
		}
	}()

	stream := r.currentStream()
	var pending []int16
	chunkStart := start

	reason := "timeout"
	for {
		if ctx.Err() != nil {
			reason = "context done"
			break
		}
		if !r.Recording() {
			reason = "stopped"
			break
		}
		if r.now().Sub(start) >= timeout {
			break
		}

		block, err := stream.Read()
		if err != nil {
			r.logger.Error("audio read failed", zap.Error(err))
			reason = "stream failure"
			break
		}
		samples = append(samples, block...)
		pending = append(pending, block...)

		if chunk > 0 && r.now().Sub(chunkStart) >= chunk {
			pcm := pending
			// At most one partial transcription is in flight; otherwise keep accumulating.
			if group.TryGo(func() error {
				r.transcribePartial(groupCtx, pcm)
				return nil
			}) {
				pending = nil
				chunkStart = r.now()
			}
		}
	}

	duration := r.now().Sub(start)
	stoppedManually := r.stoppedManually()
	r.release()
	released = true

	r.logger.Info("recording finished",
		zap.String("reason", reason),
		zap.Duration("duration", duration),
		zap.Int("samples", len(samples)),
	)

	final := ""
	if len(samples) > 0 {
		final = r.transcribe(ctx, samples, "final")
	}

	cancelPartials()
	_ = group.Wait()

	text := final
	if text == "" {
		text = strings.Join(r.partials(), " ")
	}

	return Capture{Text: text, Duration: duration, StoppedManually: stoppedManually}
}

func (r *Recognizer) transcribePartial(ctx context.Context, pcm []int16) {
	text := r.transcribe(ctx, pcm, "partial")
	if text == "" {
		return
	}

	r.mu.Lock()
	r.state.partials = append(r.state.partials, text)
	r.mu.Unlock()

	r.logger.Debug("partial transcription", zap.String("text", text))
}

// transcribe returns the recognised text, or an empty string on any failure.
func (r *Recognizer) transcribe(ctx context.Context, pcm []int16, kind string) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("transcription panicked", zap.String("kind", kind), zap.Any("panic", rec))
			text = ""
		}
	}()

	if r.transcriber == nil || !r.transcriber.Available() {
		r.logger.Warn("transcription is unavailable", zap.String("kind", kind))
		return ""
	}

	wav, err := EncodeWAV(pcm, SampleRate)
	if err != nil {
		r.logger.Error("wav encoding failed", zap.String("kind", kind), zap.Error(err))
		return ""
	}

	tr, err := r.transcriber.Transcribe(ctx, wav, r.language)
	if err != nil {
		r.logger.Warn("transcription failed", zap.String("kind", kind), zap.Error(err))
		return ""
	}
	if !tr.OK {
		return ""
	}
	return tr.Text
}

func (r *Recognizer) currentStream() InputStream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream
}

// release closes the stream and marks the session as not recording.
func (r *Recognizer) release() {
	r.mu.Lock()
	stream := r.stream
	r.stream = nil
	r.state.recording = false
	r.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		r.logger.Warn("closing microphone failed", zap.Error(err))
	}
}

func (r *Recognizer) stoppedManually() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.stoppedManually
}

func (r *Recognizer) partials() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.state.partials...)
}

package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/spigell/hr-screener/internal/ai"
)

// InputStream yields fixed-size blocks of mono 16-bit samples.
type InputStream interface {
	// Read blocks until the next block is available. The returned slice is owned by the caller.
	Read() ([]int16, error)
	Close() error
}

// Source opens microphone streams.
type Source interface {
	Open(sampleRate, framesPerBuffer int) (InputStream, error)
}

// Sink plays synthesized audio.
type Sink interface {
	Play(ctx context.Context, audio ai.Audio) error
}

// PortAudio is the default Source and Sink backed by the host audio system.
// Every opened stream holds its own Initialize/Terminate pair.
type PortAudio struct {
	// playback serialises output so questions never overlap.
	playback sync.Mutex
}

func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

func (p *PortAudio) Open(sampleRate, framesPerBuffer int) (InputStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	buf := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	return &portAudioInput{stream: stream, buf: buf}, nil
}

type portAudioInput struct {
	stream *portaudio.Stream
	buf    []int16
	once   sync.Once
	err    error
}

func (s *portAudioInput) Read() ([]int16, error) {
	if err := s.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("read input stream: %w", err)
	}
	block := make([]int16, len(s.buf))
	copy(block, s.buf)
	return block, nil
}

func (s *portAudioInput) Close() error {
	s.once.Do(func() {
		s.err = errors.Join(
			s.stream.Stop(),
			s.stream.Close(),
			portaudio.Terminate(),
		)
	})
	return s.err
}

// Play writes audio to the default output device, stopping early when ctx is done.
func (p *PortAudio) Play(ctx context.Context, audio ai.Audio) (err error) {
	if len(audio.PCM) == 0 {
		return nil
	}
	if audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", audio.SampleRate)
	}

	p.playback.Lock()
	defer p.playback.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}
	defer func() { err = errors.Join(err, portaudio.Terminate()) }()

	buf := make([]int16, FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(audio.SampleRate), len(buf), buf)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer func() { err = errors.Join(err, stream.Close()) }()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer func() { err = errors.Join(err, stream.Stop()) }()

	for offset := 0; offset < len(audio.PCM); offset += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buf, audio.PCM[offset:])
		clear(buf[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write output stream: %w", err)
		}
	}

	return nil
}

// Probe reports the name of the default input device.
func Probe() (string, error) {
	if err := portaudio.Initialize(); err != nil {
		return "", fmt.Errorf("initialize portaudio: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return "", fmt.Errorf("default input device: %w", err)
	}
	if device == nil || device.MaxInputChannels < 1 {
		return "", errors.New("no input channels on the default device")
	}
	return device.Name, nil
}

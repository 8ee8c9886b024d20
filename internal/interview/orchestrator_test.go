package interview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spigell/hr-screener/internal/speech"
	"github.com/spigell/hr-screener/internal/vacancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type scriptedListener struct {
	mu       sync.Mutex
	captures []speech.Capture
	panics   bool
	onCall   func(n int)
	calls    int
	stops    int
	timeouts []time.Duration
}

func (l *scriptedListener) CaptureAndTranscribe(_ context.Context, timeout, _ time.Duration) speech.Capture {
	l.mu.Lock()
	l.calls++
	n := l.calls
	l.timeouts = append(l.timeouts, timeout)
	l.mu.Unlock()

	if l.onCall != nil {
		l.onCall(n)
	}
	if l.panics {
		panic("microphone exploded")
	}
	if n <= len(l.captures) {
		return l.captures[n-1]
	}
	return speech.Capture{}
}

func (l *scriptedListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops++
}

type scriptedQuestions struct {
	next      []string
	err       error
	panics    bool
	histories [][]DialogueTurn
	answers   []string
}

func (q *scriptedQuestions) Next(_ context.Context, _ *vacancy.Vacancy, history []DialogueTurn, asked *Asked, previousAnswer string) (string, error) {
	q.histories = append(q.histories, append([]DialogueTurn(nil), history...))
	q.answers = append(q.answers, previousAnswer)
	if q.panics {
		panic("model crashed")
	}
	if q.err != nil {
		return "", q.err
	}
	n := q.next[0]
	q.next = q.next[1:]
	asked.Add(n)
	return n, nil
}

type recordingSpeaker struct {
	said []string
	err  error
}

func (s *recordingSpeaker) Speak(_ context.Context, text string) error {
	s.said = append(s.said, text)
	return s.err
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventLog) sink(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventLog) kinds(kind EventKind) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Event
	for _, ev := range e.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestRunThreeTurns(t *testing.T) {
	listener := &scriptedListener{captures: []speech.Capture{
		{Text: "Пять лет работал с Cisco", Duration: 12 * time.Second},
		{Text: "Настраивал VLAN на коммутаторах", Duration: 70 * time.Second, StoppedManually: true},
		{Text: "OSI это семь уровней", Duration: 5 * time.Second},
	}}
	questions := &scriptedQuestions{next: []string{"Как вы настраивали VLAN?", "Что такое OSI?"}}
	speaker := &recordingSpeaker{}
	events := &eventLog{}
	var transitions []State

	o := NewOrchestrator(questions, listener, speaker, Config{}, zap.NewNop(),
		WithEvents(events.sink),
		WithObserver(func(_, to State) { transitions = append(transitions, to) }),
	)

	answers, err := o.Run(context.Background(), testVacancy())
	require.NoError(t, err)
	require.Len(t, answers, 3)

	assert.Equal(t, Answer{Question: "Расскажите о своём опыте?", Text: "Пять лет работал с Cisco", Duration: 12}, answers[0])
	assert.Equal(t, "Как вы настраивали VLAN?", answers[1].Question)
	assert.True(t, answers[1].StoppedManually)
	assert.Equal(t, 70.0, answers[1].Duration)
	assert.Equal(t, "Что такое OSI?", answers[2].Question)

	assert.Equal(t, []string{"Расскажите о своём опыте?", "Как вы настраивали VLAN?", "Что такое OSI?"}, speaker.said)
	assert.Equal(t, []string{"Пять лет работал с Cisco", "Настраивал VLAN на коммутаторах"}, questions.answers)
	require.Len(t, questions.histories, 2)
	assert.Equal(t, []DialogueTurn{{Question: "Расскажите о своём опыте?", Answer: "Пять лет работал с Cisco"}}, questions.histories[0])
	assert.Len(t, questions.histories[1], 2)

	assert.Len(t, events.kinds(EventEnableStop), 3)
	assert.Len(t, events.kinds(EventDisableStop), 3)
	assert.Len(t, events.kinds(EventFinished), 1)
	assert.Equal(t, []time.Duration{speech.DefaultTimeout, speech.DefaultTimeout, speech.DefaultTimeout}, listener.timeouts)

	assert.Equal(t, Finished, o.State())
	assert.Equal(t, []State{
		AskingQuestion, AwaitingAnswer, ScoringTurn,
		AskingQuestion, AwaitingAnswer, ScoringTurn,
		AskingQuestion, AwaitingAnswer, ScoringTurn,
		Finished,
	}, transitions)
}

func TestRunEveryCapturePanics(t *testing.T) {
	listener := &scriptedListener{panics: true}
	questions := &scriptedQuestions{next: []string{"Как вы настраивали VLAN?", "Что такое OSI?"}}
	events := &eventLog{}

	o := NewOrchestrator(questions, listener, nil, Config{}, zap.NewNop(), WithEvents(events.sink))
	answers, err := o.Run(context.Background(), testVacancy())

	require.NoError(t, err)
	require.Len(t, answers, 3)
	for _, a := range answers {
		assert.Empty(t, a.Text)
		assert.Zero(t, a.Duration)
		assert.True(t, a.Failed)
	}
	assert.Equal(t, "Что такое OSI?", answers[2].Question)
	assert.Len(t, events.kinds(EventDisableStop), 3)
	assert.Len(t, events.kinds(EventError), 3)
}

func TestRunEverythingFails(t *testing.T) {
	listener := &scriptedListener{panics: true}
	questions := &scriptedQuestions{panics: true}
	speaker := &recordingSpeaker{err: errors.New("no speakers")}

	o := NewOrchestrator(questions, listener, speaker, Config{MaxTurns: 4}, zap.NewNop())
	answers, err := o.Run(context.Background(), testVacancy())

	require.NoError(t, err)
	require.Len(t, answers, 4)

	bank := testVacancy().Questions
	asked := make([]string, 0, len(answers))
	for _, a := range answers {
		assert.Contains(t, bank, a.Question)
		assert.Empty(t, a.Text)
		asked = append(asked, a.Question)
	}
	// The bank is used up before any question repeats.
	assert.Equal(t, bank[0], asked[0])
	assert.ElementsMatch(t, bank, asked[:3])
	assert.Len(t, speaker.said, 4)
}

func TestRunNoSeedQuestions(t *testing.T) {
	v := testVacancy()
	v.Questions = nil
	listener := &scriptedListener{}

	o := NewOrchestrator(&scriptedQuestions{}, listener, nil, Config{}, zap.NewNop())
	answers, err := o.Run(context.Background(), v)

	assert.ErrorIs(t, err, ErrNoSeedQuestions)
	assert.Empty(t, answers)
	assert.Equal(t, Finished, o.State())
	assert.Zero(t, listener.calls)
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := &scriptedListener{
		captures: []speech.Capture{{Text: "первый ответ", Duration: time.Second}},
		onCall: func(n int) {
			if n == 1 {
				cancel()
			}
		},
	}
	questions := &scriptedQuestions{err: context.Canceled}

	o := NewOrchestrator(questions, listener, nil, Config{Pause: time.Hour}, zap.NewNop())
	answers, err := o.Run(ctx, testVacancy())

	require.NoError(t, err)
	require.Len(t, answers, 3)
	assert.Equal(t, "первый ответ", answers[0].Text)
	assert.False(t, answers[0].Failed)
	assert.True(t, answers[1].Failed)
	assert.True(t, answers[2].Failed)
	assert.Equal(t, 1, listener.calls)
}

func TestRunStopPhraseAndSpeechFailure(t *testing.T) {
	listener := &scriptedListener{captures: []speech.Capture{{Text: "Я закончил, спасибо"}}}
	speaker := &recordingSpeaker{err: errors.New("no speakers")}
	events := &eventLog{}

	o := NewOrchestrator(&scriptedQuestions{}, listener, speaker, Config{MaxTurns: 1}, zap.NewNop(), WithEvents(events.sink))
	answers, err := o.Run(context.Background(), testVacancy())

	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Я закончил, спасибо", answers[0].Text)

	phrases := events.kinds(EventStopPhrase)
	require.Len(t, phrases, 1)
	assert.Equal(t, "закончил", phrases[0].Message)
	assert.Len(t, events.kinds(EventError), 1)
}

func TestStopDelegatesToListener(t *testing.T) {
	listener := &scriptedListener{}
	o := NewOrchestrator(nil, listener, nil, Config{}, nil)

	o.Stop()
	o.Stop()

	assert.Equal(t, 2, listener.stops)
	assert.Equal(t, NotStarted, o.State())
}

func TestRunLogsStateTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	listener := &scriptedListener{captures: []speech.Capture{{Text: "ответ", Duration: time.Second}}}
	o := NewOrchestrator(&scriptedQuestions{}, listener, &recordingSpeaker{}, Config{MaxTurns: 1}, zap.New(core))

	_, err := o.Run(context.Background(), testVacancy())
	require.NoError(t, err)

	entries := logs.FilterMessage("interview state").All()
	require.NotEmpty(t, entries)
	first, last := entries[0].ContextMap(), entries[len(entries)-1].ContextMap()
	assert.Equal(t, "not_started", first["from"])
	assert.Equal(t, "asking_question", first["to"])
	assert.Equal(t, "finished", last["to"])
	for _, e := range entries {
		assert.NotEqual(t, e.ContextMap()["from"], e.ContextMap()["to"])
	}
}

package interview

import "fmt"

// Answer is the record of one interview turn.
type Answer struct {
	Question string `json:"question"`
	Text     string `json:"answer"`
	// Duration is the spoken duration in seconds.
	Duration        float64 `json:"duration"`
	StoppedManually bool    `json:"stopped_manually"`
	Failed          bool    `json:"failed,omitempty"`
}

type State int

const (
	NotStarted State = iota
	AskingQuestion
	AwaitingAnswer
	ScoringTurn
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case AskingQuestion:
		return "asking_question"
	case AwaitingAnswer:
		return "awaiting_answer"
	case ScoringTurn:
		return "scoring_turn"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type EventKind string

const (
	EventQuestion    EventKind = "question"
	EventAnswer      EventKind = "answer"
	EventEnableStop  EventKind = "[ENABLE_STOP]"
	EventDisableStop EventKind = "[DISABLE_STOP]"
	EventStopPhrase  EventKind = "stop_phrase"
	EventError       EventKind = "error"
	EventFinished    EventKind = "finished"
)

// Event is one entry of the live interview log.
type Event struct {
	Kind    EventKind
	Turn    int
	Message string
}

// EventSink receives interview events. Implementations must not block for long.
type EventSink func(Event)

// DialogueTurn is one question/answer exchange of the history.
type DialogueTurn struct {
	Question string
	Answer   string
}

// Lines renders the turn as prompt history lines.
func (t DialogueTurn) Lines() []string {
	return []string{"HR: " + t.Question, "Кандидат: " + t.Answer}
}

package model

// Phase is the position of a session in the questionnaire lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGreeting
	PhaseAsking
	PhaseFinishing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseGreeting:
		return "greeting"
	case PhaseAsking:
		return "asking"
	case PhaseFinishing:
		return "finishing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

type SessionState struct {
	Started bool
	Visible bool
	Phase   Phase
	Cursor  int          // index of the pending or next question
	Answers AnswerRecord // question id -> normalized answer
	Pending bool         // a deferred step is scheduled and not yet run
}

// NewSessionState returns the Idle state of a fresh session.
func NewSessionState() SessionState {
	return SessionState{Phase: PhaseIdle, Answers: make(AnswerRecord)}
}

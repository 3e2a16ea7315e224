package call

import (
	"sync"
	"time"
)

// State is the call protocol state.
type State string

const (
	StateInitial         State = "initial"
	StateTroubleshooting State = "troubleshooting"
	StateFinalCheck      State = "final_check"
	StateResolved        State = "resolved"
	StateEscalated       State = "escalated"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateResolved || s == StateEscalated
}

// Speaker labels one side of the conversation.
type Speaker string

const (
	SpeakerCaller Speaker = "user"
	SpeakerAgent  Speaker = "agent"
)

// Turn is one transcript entry. The transcript is append-only.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Session holds all per-call state. One exists per active call; the engine
// takes the session lock for the whole read-decide-write of each turn, so
// turns for one call are serialized while distinct calls never contend.
type Session struct {
	mu sync.Mutex

	ID                 string
	PhoneNumber        string
	State              State
	Transcript         []Turn
	TroubleshootRounds int
	InitialProblem     string
	SuggestedSolution  string
	Resolved           bool

	StartedAt      time.Time
	LastActivityAt time.Time

	// closed marks a session already torn down, so the janitor and a racing
	// hangup cannot record a second insight for it.
	closed bool
}

func (s *Session) lock()   { s.mu.Lock() }
func (s *Session) unlock() { s.mu.Unlock() }

func (s *Session) appendTurn(speaker Speaker, text string) {
	s.Transcript = append(s.Transcript, Turn{Speaker: speaker, Text: text})
}

func (s *Session) touch() {
	s.LastActivityAt = time.Now().UTC()
}

// transcriptLines renders the transcript in the "User: …" / "AI: …" form
// used by the escalation store and the analytics payload.
func (s *Session) transcriptLines() []string {
	lines := make([]string, 0, len(s.Transcript))
	for _, t := range s.Transcript {
		prefix := "AI: "
		if t.Speaker == SpeakerCaller {
			prefix = "User: "
		}
		lines = append(lines, prefix+t.Text)
	}
	return lines
}

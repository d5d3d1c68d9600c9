// Package session owns per-session conversational state and the
// per-session rate limiter. Sessions are small keyed documents with a
// sliding TTL; Redis is the reference backend and an in-memory
// implementation covers development and tests.
package session

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one persisted history entry. Tool calls and tool results
// never appear here; they live only inside a single turn's
// orchestration.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts"`
}

// Session is the persisted per-session document. Language is detected
// on the first turn and immutable for the session lifetime unless it
// was never set.
type Session struct {
	CreatedAt time.Time `json:"createdAt"`
	Language  string    `json:"language,omitempty"`
	Messages  []Message `json:"messages"`
}

// New returns a fresh session observed now.
func New(now time.Time) *Session {
	return &Session{CreatedAt: now.UTC(), Messages: []Message{}}
}

// Append adds a user/assistant exchange to the history.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Trim drops the oldest messages so that len(Messages) <= max. Role
// alternation is not preserved; the model tolerates imbalance.
func (s *Session) Trim(max int) {
	if max <= 0 || len(s.Messages) <= max {
		return
	}
	s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-max:]...)
}

package quiz

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle phase of a quiz session.
type Status string

const (
	StatusNotStarted     Status = "not_started"
	StatusAwaitingAnswer Status = "awaiting_answer"
	StatusComplete       Status = "complete"
)

// Turn is one entry in the session transcript.
type Turn struct {
	Role string `json:"role"` // "learner" or "tutor"
	Text string `json:"text"`
}

const (
	RoleLearner = "learner"
	RoleTutor   = "tutor"
)

// Session is the persisted record of one learner's quiz in progress.
// One mutable Session exists per learner key at a time.
type Session struct {
	UserID string `json:"user_id"`
	Status Status `json:"status"`

	// QuestionOrder is fixed at first materialization and never
	// reshuffled until a reset replaces the session.
	QuestionOrder []string `json:"question_order"`

	// CurrentIndex is the position of the card being asked.
	// Equals len(QuestionOrder) once the session is complete.
	CurrentIndex int `json:"current_index"`

	QuestionsAnswered int `json:"questions_answered"`
	CorrectCount      int `json:"correct_count"`

	History []Turn `json:"history"`

	Version   int64 `json:"-"`
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

func NewSession(userID string) *Session {
	now := time.Now().Unix()
	return &Session{
		UserID:    userID,
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ErrStateCorrupt marks a session whose counters violate the engine's
// invariants. The orchestrator discards such a session instead of
// propagating it.
var ErrStateCorrupt = errors.New("quiz session state corrupt")

// Validate checks the session invariants. Under the explicit-advance
// convention the current card may already be graded, so
// QuestionsAnswered can exceed CurrentIndex by at most one.
func (s *Session) Validate() error {
	n := len(s.QuestionOrder)
	if s.CurrentIndex < 0 || s.CurrentIndex > n {
		return fmt.Errorf("%w: current_index %d out of range [0,%d]", ErrStateCorrupt, s.CurrentIndex, n)
	}
	if s.QuestionsAnswered < 0 || s.QuestionsAnswered > n {
		return fmt.Errorf("%w: questions_answered %d out of range [0,%d]", ErrStateCorrupt, s.QuestionsAnswered, n)
	}
	if s.QuestionsAnswered > s.CurrentIndex+1 {
		return fmt.Errorf("%w: questions_answered %d ahead of current_index %d", ErrStateCorrupt, s.QuestionsAnswered, s.CurrentIndex)
	}
	if s.CorrectCount < 0 || s.CorrectCount > s.QuestionsAnswered {
		return fmt.Errorf("%w: correct_count %d exceeds questions_answered %d", ErrStateCorrupt, s.CorrectCount, s.QuestionsAnswered)
	}
	switch s.Status {
	case StatusNotStarted:
		if n != 0 {
			return fmt.Errorf("%w: not_started session has a question order", ErrStateCorrupt)
		}
	case StatusAwaitingAnswer:
		if s.CurrentIndex >= n {
			return fmt.Errorf("%w: awaiting_answer at index %d with %d questions", ErrStateCorrupt, s.CurrentIndex, n)
		}
	case StatusComplete:
		if s.CurrentIndex != n {
			return fmt.Errorf("%w: complete session not at end (%d/%d)", ErrStateCorrupt, s.CurrentIndex, n)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrStateCorrupt, s.Status)
	}
	return nil
}

// currentGraded reports whether the card at CurrentIndex has already
// been graded this session.
func (s *Session) currentGraded() bool {
	return s.QuestionsAnswered == s.CurrentIndex+1
}

// appendHistory records a learner/tutor exchange, dropping the oldest
// entries beyond limit pairs (0 means unbounded). A blank learner text
// (the greeting trigger) is not a turn and is never recorded; model
// providers reject empty message content.
func (s *Session) appendHistory(learner, tutor string, limit int) {
	if learner != "" {
		s.History = append(s.History, Turn{Role: RoleLearner, Text: learner})
	}
	s.History = append(s.History, Turn{Role: RoleTutor, Text: tutor})
	if limit > 0 && len(s.History) > 2*limit {
		s.History = s.History[len(s.History)-2*limit:]
	}
}

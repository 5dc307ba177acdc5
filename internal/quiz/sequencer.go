package quiz

import (
	"context"
	"fmt"

	"github.com/studydeck/studydeck/internal/flashcard"
)

// CardSource is the read-only slice of the flashcard store the engine
// consumes. ListByOwner must return a stable order.
type CardSource interface {
	ListByOwner(ctx context.Context, userID string) ([]flashcard.Flashcard, error)
	GetCard(ctx context.Context, id string) (flashcard.Flashcard, error)
}

// Sequencer decides which card comes next. The order is fixed once per
// session from the flashcard source's stable listing; the sequencer
// never mutates the source.
type Sequencer struct {
	source CardSource
}

func NewSequencer(source CardSource) *Sequencer {
	return &Sequencer{source: source}
}

// Materialize fixes the question order for a new session. An empty
// result means the learner has no cards; the state machine turns that
// into an immediately complete session.
func (s *Sequencer) Materialize(ctx context.Context, userID string) ([]string, error) {
	cards, err := s.source.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	order := make([]string, 0, len(cards))
	for _, c := range cards {
		order = append(order, c.ID)
	}
	return order, nil
}

// Next returns the card at the session's current index, or nil when the
// order is exhausted. A card id that no longer resolves (deleted
// mid-session) surfaces as ErrStateCorrupt so the orchestrator starts
// the learner over instead of serving a hole.
func (s *Sequencer) Next(ctx context.Context, sess *Session) (*flashcard.Flashcard, error) {
	if sess.CurrentIndex >= len(sess.QuestionOrder) {
		return nil, nil
	}
	id := sess.QuestionOrder[sess.CurrentIndex]
	card, err := s.source.GetCard(ctx, id)
	if err != nil {
		if err == flashcard.ErrCardNotFound {
			return nil, fmt.Errorf("%w: card %s missing from source", ErrStateCorrupt, id)
		}
		return nil, fmt.Errorf("load card %s: %w", id, err)
	}
	return &card, nil
}

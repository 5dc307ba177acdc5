package flashcard

import (
	"context"
	"errors"
)

var (
	ErrDeckNotFound = errors.New("deck not found")
	ErrCardNotFound = errors.New("flashcard not found")
)

// NewCard is the payload for creating a card inside a bulk deck import.
type NewCard struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// Store is the flashcard source and its management surface. The quiz
// engine only reads through ListByOwner; everything else serves the
// deck-management API.
type Store interface {
	CreateDeck(ctx context.Context, userID, name string) (Deck, error)
	ImportDeck(ctx context.Context, userID, name string, cards []NewCard) (Deck, []Flashcard, error)
	GetDeck(ctx context.Context, id string) (Deck, error)
	ListDecks(ctx context.Context, userID string) ([]Deck, error)

	CreateCard(ctx context.Context, deckID, question, answer string) (Flashcard, error)
	GetCard(ctx context.Context, id string) (Flashcard, error)
	UpdateCard(ctx context.Context, id, question, answer string) (Flashcard, error)
	DeleteCard(ctx context.Context, id string) error

	// ListByOwner returns every card in every deck the user owns, in a
	// stable (created_at, id) order. The sequencer depends on this order
	// being deterministic within a session.
	ListByOwner(ctx context.Context, userID string) ([]Flashcard, error)

	// SearchByTopic is a keyword lookup over question/answer text.
	SearchByTopic(ctx context.Context, userID, topic string) ([]Flashcard, error)
}

package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/studydeck/studydeck/internal/auth/middleware"
	"github.com/studydeck/studydeck/internal/flashcard"
)

// CreateDeckHandler makes an empty deck for the authenticated learner.
// POST /decks  { "name": "..." }
func CreateDeckHandler(store flashcard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name" validate:"required,max=100"`
		}
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		d, err := store.CreateDeck(r.Context(), authmw.LearnerKeyFromContext(r.Context()), req.Name)
		if err != nil {
			http.Error(w, "create deck", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

// ImportDeckHandler creates a deck and all of its cards in one request.
// POST /decks/import  { "deck_name": "...", "flashcards": [{question, answer}, ...] }
func ImportDeckHandler(store flashcard.Store) http.HandlerFunc {
	type out struct {
		Deck       flashcard.Deck        `json:"deck"`
		Flashcards []flashcard.Flashcard `json:"flashcards"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DeckName   string              `json:"deck_name" validate:"required,max=100"`
			Flashcards []flashcard.NewCard `json:"flashcards" validate:"required,min=1,dive"`
		}
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		d, cards, err := store.ImportDeck(r.Context(), authmw.LearnerKeyFromContext(r.Context()), req.DeckName, req.Flashcards)
		if err != nil {
			http.Error(w, "import deck", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, out{Deck: d, Flashcards: cards})
	}
}

// ListDecksHandler returns the learner's decks.
// GET /decks
func ListDecksHandler(store flashcard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decks, err := store.ListDecks(r.Context(), authmw.LearnerKeyFromContext(r.Context()))
		if err != nil {
			http.Error(w, "list decks", http.StatusInternalServerError)
			return
		}
		if decks == nil {
			decks = []flashcard.Deck{}
		}
		writeJSON(w, http.StatusOK, decks)
	}
}

// CreateCardHandler adds a card to one of the learner's decks.
// POST /cards  { "deck_id": "...", "question": "...", "answer": "..." }
func CreateCardHandler(store flashcard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DeckID   string `json:"deck_id" validate:"required"`
			Question string `json:"question" validate:"required"`
			Answer   string `json:"answer" validate:"required"`
		}
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		d, err := store.GetDeck(r.Context(), req.DeckID)
		if err != nil {
			writeCardError(w, err)
			return
		}
		if d.UserID != authmw.LearnerKeyFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		fc, err := store.CreateCard(r.Context(), req.DeckID, req.Question, req.Answer)
		if err != nil {
			writeCardError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, fc)
	}
}

// GetCardHandler fetches one of the learner's cards by id.
// GET /cards/{cardID}
func GetCardHandler(store flashcard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fc, ok := ownedCard(w, r, store, chi.URLParam(r, "cardID"))
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, fc)
	}
}

// UpdateCardHandler replaces a card's question and answer.
// PUT /cards/{cardID}  { "question": "...", "answer": "..." }
func UpdateCardHandler(store flashcard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question" validate:"required"`
			Answer   string `json:"answer" validate:"required"`
		}
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		fc, ok := ownedCard(w, r, store, chi.URLParam(r, "cardID"))
		if !ok {
			return
		}
		fc, err := store.UpdateCard(r.Context(), fc.ID, req.Question, req.Answer)
		if err != nil {
			writeCardError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fc)
	}
}

// DeleteCardHandler removes one of the learner's cards.
// DELETE /cards/{cardID}
func DeleteCardHandler(store flashcard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fc, ok := ownedCard(w, r, store, chi.URLParam(r, "cardID"))
		if !ok {
			return
		}
		if err := store.DeleteCard(r.Context(), fc.ID); err != nil {
			writeCardError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// ownedCard loads a card and verifies, through its deck, that it belongs
// to the authenticated learner. Writes the error response itself and
// returns ok=false when the caller should stop.
func ownedCard(w http.ResponseWriter, r *http.Request, store flashcard.Store, cardID string) (flashcard.Flashcard, bool) {
	fc, err := store.GetCard(r.Context(), cardID)
	if err != nil {
		writeCardError(w, err)
		return flashcard.Flashcard{}, false
	}
	d, err := store.GetDeck(r.Context(), fc.DeckID)
	if err != nil {
		writeCardError(w, err)
		return flashcard.Flashcard{}, false
	}
	if d.UserID != authmw.LearnerKeyFromContext(r.Context()) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return flashcard.Flashcard{}, false
	}
	return fc, true
}

// SearchTopicHandler does a keyword lookup over the learner's cards.
// GET /cards/topic/{topic}
func SearchTopicHandler(store flashcard.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := store.SearchByTopic(r.Context(), authmw.LearnerKeyFromContext(r.Context()), chi.URLParam(r, "topic"))
		if err != nil {
			http.Error(w, "search", http.StatusInternalServerError)
			return
		}
		if cards == nil {
			cards = []flashcard.Flashcard{}
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

func writeCardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flashcard.ErrCardNotFound), errors.Is(err, flashcard.ErrDeckNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

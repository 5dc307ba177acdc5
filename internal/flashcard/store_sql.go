package flashcard

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateDeck(ctx context.Context, userID, name string) (Deck, error) {
	d := Deck{ID: uuid.NewString(), UserID: userID, Name: name, CreatedAt: time.Now().Unix()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decks (id, user_id, name, created_at) VALUES ($1,$2,$3,$4)`,
		d.ID, d.UserID, d.Name, d.CreatedAt)
	if err != nil {
		return Deck{}, err
	}
	return d, nil
}

// ImportDeck creates a deck and its cards in one transaction.
func (s *SQLStore) ImportDeck(ctx context.Context, userID, name string, cards []NewCard) (Deck, []Flashcard, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Deck{}, nil, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	d := Deck{ID: uuid.NewString(), UserID: userID, Name: name, CreatedAt: now}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO decks (id, user_id, name, created_at) VALUES ($1,$2,$3,$4)`,
		d.ID, d.UserID, d.Name, d.CreatedAt); err != nil {
		return Deck{}, nil, err
	}

	out := make([]Flashcard, 0, len(cards))
	for i, c := range cards {
		fc := Flashcard{
			ID:       uuid.NewString(),
			DeckID:   d.ID,
			Question: c.Question,
			Answer:   c.Answer,
			// Offset keeps the import order stable under the
			// (created_at, id) sort.
			CreatedAt: now + int64(i),
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flashcards (id, deck_id, question, answer, created_at) VALUES ($1,$2,$3,$4,$5)`,
			fc.ID, fc.DeckID, fc.Question, fc.Answer, fc.CreatedAt); err != nil {
			return Deck{}, nil, err
		}
		out = append(out, fc)
	}
	if err := tx.Commit(); err != nil {
		return Deck{}, nil, err
	}
	return d, out, nil
}

func (s *SQLStore) GetDeck(ctx context.Context, id string) (Deck, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM decks WHERE id=$1`, id)
	var d Deck
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deck{}, ErrDeckNotFound
		}
		return Deck{}, err
	}
	return d, nil
}

func (s *SQLStore) ListDecks(ctx context.Context, userID string) ([]Deck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM decks WHERE user_id=$1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Deck
	for rows.Next() {
		var d Deck
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateCard(ctx context.Context, deckID, question, answer string) (Flashcard, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM decks WHERE id=$1`, deckID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Flashcard{}, ErrDeckNotFound
		}
		return Flashcard{}, err
	}
	fc := Flashcard{
		ID:        uuid.NewString(),
		DeckID:    deckID,
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flashcards (id, deck_id, question, answer, created_at) VALUES ($1,$2,$3,$4,$5)`,
		fc.ID, fc.DeckID, fc.Question, fc.Answer, fc.CreatedAt)
	if err != nil {
		return Flashcard{}, err
	}
	return fc, nil
}

func (s *SQLStore) GetCard(ctx context.Context, id string) (Flashcard, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, deck_id, question, answer, created_at FROM flashcards WHERE id=$1`, id)
	var fc Flashcard
	if err := row.Scan(&fc.ID, &fc.DeckID, &fc.Question, &fc.Answer, &fc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Flashcard{}, ErrCardNotFound
		}
		return Flashcard{}, err
	}
	return fc, nil
}

func (s *SQLStore) UpdateCard(ctx context.Context, id, question, answer string) (Flashcard, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE flashcards SET question=$1, answer=$2 WHERE id=$3`, question, answer, id)
	if err != nil {
		return Flashcard{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Flashcard{}, ErrCardNotFound
	}
	return s.GetCard(ctx, id)
}

func (s *SQLStore) DeleteCard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (s *SQLStore) ListByOwner(ctx context.Context, userID string) ([]Flashcard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.deck_id, f.question, f.answer, f.created_at
		 FROM flashcards f JOIN decks d ON f.deck_id = d.id
		 WHERE d.user_id=$1
		 ORDER BY f.created_at, f.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func (s *SQLStore) SearchByTopic(ctx context.Context, userID, topic string) ([]Flashcard, error) {
	pattern := "%" + topic + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.deck_id, f.question, f.answer, f.created_at
		 FROM flashcards f JOIN decks d ON f.deck_id = d.id
		 WHERE d.user_id=$1 AND (f.question LIKE $2 OR f.answer LIKE $2)
		 ORDER BY f.created_at, f.id`, userID, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCards(rows)
}

func scanCards(rows *sql.Rows) ([]Flashcard, error) {
	var out []Flashcard
	for rows.Next() {
		var fc Flashcard
		if err := rows.Scan(&fc.ID, &fc.DeckID, &fc.Question, &fc.Answer, &fc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SQLSessionStore keeps one quiz_sessions row per learner.
type SQLSessionStore struct {
	db *sql.DB
}

func NewSQLSessionStore(db *sql.DB) *SQLSessionStore {
	return &SQLSessionStore{db: db}
}

func (s *SQLSessionStore) Load(ctx context.Context, userID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT status, question_order_json, current_index, questions_answered,
		        correct_count, history_json, version, created_at, updated_at
		 FROM quiz_sessions WHERE user_id=$1`, userID)

	sess := &Session{UserID: userID}
	var status, orderJSON, historyJSON string
	err := row.Scan(&status, &orderJSON, &sess.CurrentIndex, &sess.QuestionsAnswered,
		&sess.CorrectCount, &historyJSON, &sess.Version, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	if err := json.Unmarshal([]byte(orderJSON), &sess.QuestionOrder); err != nil {
		return nil, fmt.Errorf("%w: bad question order: %v", ErrStateCorrupt, err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &sess.History); err != nil {
		return nil, fmt.Errorf("%w: bad history: %v", ErrStateCorrupt, err)
	}
	return sess, nil
}

// Save inserts a fresh session (Version 0) or updates an existing one,
// failing with ErrConflict when the stored version moved on.
func (s *SQLSessionStore) Save(ctx context.Context, sess *Session) error {
	orderJSON, err := json.Marshal(orDefault(sess.QuestionOrder))
	if err != nil {
		return err
	}
	historyJSON, err := json.Marshal(orDefault(sess.History))
	if err != nil {
		return err
	}

	if sess.Version == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO quiz_sessions
			   (user_id, status, question_order_json, current_index, questions_answered,
			    correct_count, history_json, version, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,1,$8,$9)`,
			sess.UserID, string(sess.Status), string(orderJSON), sess.CurrentIndex,
			sess.QuestionsAnswered, sess.CorrectCount, string(historyJSON),
			sess.CreatedAt, sess.UpdatedAt)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrConflict
			}
			return err
		}
		sess.Version = 1
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE quiz_sessions
		 SET status=$1, question_order_json=$2, current_index=$3, questions_answered=$4,
		     correct_count=$5, history_json=$6, version=version+1, updated_at=$7
		 WHERE user_id=$8 AND version=$9`,
		string(sess.Status), string(orderJSON), sess.CurrentIndex, sess.QuestionsAnswered,
		sess.CorrectCount, string(historyJSON), sess.UpdatedAt, sess.UserID, sess.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	sess.Version++
	return nil
}

func (s *SQLSessionStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE user_id=$1`, userID)
	return err
}

// orDefault keeps nil slices serializing as [] rather than null.
func orDefault[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}

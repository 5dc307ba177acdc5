package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/studydeck/studydeck/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	h, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestSQLSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLSessionStore(newTestDB(t))

	if _, err := store.Load(ctx, "u1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("load missing: %v", err)
	}

	sess := NewSession("u1")
	sess.Status = StatusAwaitingAnswer
	sess.QuestionOrder = []string{"c1", "c2"}
	sess.QuestionsAnswered = 1
	sess.CorrectCount = 1
	sess.appendHistory("my answer", "well done", 50)

	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if sess.Version != 1 {
		t.Fatalf("version after insert = %d", sess.Version)
	}

	got, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Status != StatusAwaitingAnswer ||
		len(got.QuestionOrder) != 2 || got.QuestionOrder[1] != "c2" ||
		got.QuestionsAnswered != 1 || got.CorrectCount != 1 ||
		got.Version != 1 {
		t.Fatalf("loaded = %+v", got)
	}
	if len(got.History) != 2 || got.History[1].Text != "well done" {
		t.Fatalf("history = %+v", got.History)
	}

	got.CurrentIndex = 1
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("version after update = %d", got.Version)
	}
}

func TestSQLSessionStoreVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewSQLSessionStore(newTestDB(t))

	sess := NewSession("u1")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Two readers of the same row; the second writer must lose.
	a, _ := store.Load(ctx, "u1")
	b, _ := store.Load(ctx, "u1")

	a.QuestionsAnswered = 0
	a.Status = StatusNotStarted
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := store.Save(ctx, b); !errors.Is(err, ErrConflict) {
		t.Fatalf("save b: %v, want ErrConflict", err)
	}

	// A second insert for the same learner also conflicts.
	if err := store.Save(ctx, NewSession("u1")); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate insert: %v, want ErrConflict", err)
	}
}

func TestSQLSessionStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSQLSessionStore(newTestDB(t))

	sess := NewSession("u1")
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "u1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("load after delete: %v", err)
	}
	// Deleting an absent session is not an error.
	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestSQLSessionStoreCorruptJSON(t *testing.T) {
	ctx := context.Background()
	h := newTestDB(t)
	store := NewSQLSessionStore(h)

	_, err := h.ExecContext(ctx,
		`INSERT INTO quiz_sessions
		   (user_id, status, question_order_json, current_index, questions_answered,
		    correct_count, history_json, version, created_at, updated_at)
		 VALUES ('u1','awaiting_answer','not json',0,0,0,'[]',1,0,0)`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.Load(ctx, "u1"); !errors.Is(err, ErrStateCorrupt) {
		t.Fatalf("load corrupt: %v, want ErrStateCorrupt", err)
	}
}

func TestSQLSessionStoreNilSlicesStoredAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewSQLSessionStore(newTestDB(t))

	if err := store.Save(ctx, NewSession("u1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.QuestionOrder == nil || len(got.QuestionOrder) != 0 {
		t.Fatalf("order = %#v", got.QuestionOrder)
	}
	if got.History == nil || len(got.History) != 0 {
		t.Fatalf("history = %#v", got.History)
	}
}

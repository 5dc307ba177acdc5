package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

/* ---------------- In-memory SessionStore and EventSink ---------------- */

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session

	saveErr error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]Session)}
}

func (m *memSessionStore) Load(_ context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := s
	cp.QuestionOrder = append([]string(nil), s.QuestionOrder...)
	cp.History = append([]Turn(nil), s.History...)
	return &cp, nil
}

func (m *memSessionStore) Save(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.sessions[sess.UserID]
	if sess.Version == 0 {
		if ok {
			return ErrConflict
		}
	} else if !ok || stored.Version != sess.Version {
		return ErrConflict
	}
	sess.Version++
	m.sessions[sess.UserID] = *sess
	return nil
}

func (m *memSessionStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *memSessionStore) put(sess Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = sess
}

func (m *memSessionStore) has(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

type memEvents struct {
	mu    sync.Mutex
	types []string
}

func (m *memEvents) Append(_ context.Context, typ, _ string, data any) error {
	if _, err := json.Marshal(data); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, typ)
	return nil
}

func (m *memEvents) seen(typ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.types {
		if t == typ {
			return true
		}
	}
	return false
}

func newTestOrchestrator(cards *fakeCards, oracle Oracle) (*Orchestrator, *memSessionStore, *memEvents) {
	store := newMemSessionStore()
	events := &memEvents{}
	o := NewOrchestrator(store, NewMachine(oracle, NewSequencer(cards), "next", 50), events)
	return o, store, events
}

/* ---------------- Tests ---------------- */

func TestOrchestratorPersistsAcrossTurns(t *testing.T) {
	ctx := context.Background()
	cards := newFakeCards("u1", "Q1", "A1", "Q2", "A2")
	oracle := &stubOracle{judgments: []Judgment{
		{Correct: true, Reply: "yes"},
		{Correct: true, Reply: "yes"},
	}}
	o, store, events := newTestOrchestrator(cards, oracle)

	res, err := o.HandleTurn(ctx, "u1", "")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if res.SessionComplete || res.TotalQuestions != 2 || res.Score != nil {
		t.Fatalf("turn 1 result = %+v", res)
	}
	if !store.has("u1") {
		t.Fatal("session not persisted after first turn")
	}

	// Each turn reloads from the store; nothing is held in memory.
	res, err = o.HandleTurn(ctx, "u1", "A1")
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if res.QuestionsAnswered != 1 || res.Score == nil || *res.Score != 1.0 {
		t.Fatalf("turn 2 result = %+v", res)
	}

	for _, msg := range []string{"next", "A2", "next"} {
		if res, err = o.HandleTurn(ctx, "u1", msg); err != nil {
			t.Fatalf("turn %q: %v", msg, err)
		}
	}
	if !res.SessionComplete || res.QuestionsAnswered != 2 || *res.Score != 1.0 {
		t.Fatalf("final result = %+v", res)
	}
	if !events.seen("TurnHandled") || !events.seen("SessionComplete") {
		t.Fatalf("events = %v", events.types)
	}
}

func TestOrchestratorRequiresLearnerKey(t *testing.T) {
	o, _, _ := newTestOrchestrator(newFakeCards("u1"), &stubOracle{})
	if _, err := o.HandleTurn(context.Background(), "", "hi"); !errors.Is(err, ErrMissingLearner) {
		t.Fatalf("HandleTurn err = %v", err)
	}
	if _, err := o.Reset(context.Background(), ""); !errors.Is(err, ErrMissingLearner) {
		t.Fatalf("Reset err = %v", err)
	}
}

func TestOrchestratorFailedTurnSavesNothing(t *testing.T) {
	ctx := context.Background()
	cards := newFakeCards("u1", "Q1", "A1")
	oracle := &stubOracle{}
	o, store, _ := newTestOrchestrator(cards, oracle)

	if _, err := o.HandleTurn(ctx, "u1", ""); err != nil {
		t.Fatalf("greet: %v", err)
	}
	saved, _ := store.Load(ctx, "u1")

	oracle.err = ErrOracleUnavailable
	if _, err := o.HandleTurn(ctx, "u1", "answer"); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("err = %v", err)
	}

	after, _ := store.Load(ctx, "u1")
	if after.QuestionsAnswered != saved.QuestionsAnswered || after.Version != saved.Version {
		t.Fatalf("stored session changed on failed turn: %+v vs %+v", after, saved)
	}
}

func TestOrchestratorResetStartsOver(t *testing.T) {
	ctx := context.Background()
	cards := newFakeCards("u1", "Q1", "A1")
	o, _, events := newTestOrchestrator(cards, &stubOracle{})

	if _, err := o.HandleTurn(ctx, "u1", ""); err != nil {
		t.Fatalf("greet: %v", err)
	}
	if _, err := o.HandleTurn(ctx, "u1", "A1"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	res, err := o.Reset(ctx, "u1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if res.QuestionsAnswered != 0 || res.Score != nil || res.SessionComplete {
		t.Fatalf("reset result = %+v", res)
	}
	if !strings.Contains(res.Reply, "Question 1 of 1") {
		t.Fatalf("reset reply = %q", res.Reply)
	}
	if !events.seen("SessionReset") {
		t.Fatalf("events = %v", events.types)
	}
}

func TestOrchestratorDiscardsCorruptSession(t *testing.T) {
	ctx := context.Background()
	cards := newFakeCards("u1", "Q1", "A1")
	o, store, events := newTestOrchestrator(cards, &stubOracle{})

	// Counters that can never arise from legal transitions.
	store.put(Session{
		UserID:            "u1",
		Status:            StatusAwaitingAnswer,
		QuestionOrder:     []string{"card-1"},
		CurrentIndex:      0,
		QuestionsAnswered: 5,
		Version:           3,
	})

	res, err := o.HandleTurn(ctx, "u1", "")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	// The corrupt session was replaced by a fresh greeting.
	if !strings.Contains(res.Reply, "Question 1 of 1") || res.QuestionsAnswered != 0 {
		t.Fatalf("result = %+v", res)
	}
	if !events.seen("SessionDiscarded") {
		t.Fatalf("events = %v", events.types)
	}
}

func TestOrchestratorSerializesTurnsPerLearner(t *testing.T) {
	ctx := context.Background()
	cards := newFakeCards("u1", "Q1", "A1", "Q2", "A2", "Q3", "A3")
	o, store, _ := newTestOrchestrator(cards, &stubOracle{})

	if _, err := o.HandleTurn(ctx, "u1", ""); err != nil {
		t.Fatalf("greet: %v", err)
	}

	// Concurrent answer/advance pairs must serialize under the per-key
	// lock; with load and save inside the critical section no turn may
	// observe a stale version.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.HandleTurn(ctx, "u1", "some answer"); err != nil {
				t.Errorf("answer turn: %v", err)
			}
		}()
	}
	wg.Wait()

	sess, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Only the first concurrent answer grades; the rest hit the
	// already-answered guard.
	if sess.QuestionsAnswered != 1 {
		t.Fatalf("answered = %d, want 1", sess.QuestionsAnswered)
	}
	if err := sess.Validate(); err != nil {
		t.Fatalf("state invalid after concurrent turns: %v", err)
	}
}

package quiz

import (
	"context"
	"errors"
	"log"
)

// TurnResult is the outward contract of one exchange.
type TurnResult struct {
	Reply             string
	SessionComplete   bool
	Score             *float64 // correct/answered; nil until something is graded
	TotalQuestions    int
	QuestionsAnswered int
}

// EventSink receives audit events. Appends are best effort; the
// orchestrator never fails a turn over one.
type EventSink interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// Orchestrator is the entry point for turns. It owns the per-key lock
// for the whole load→transition→save span, so a slow grading call
// delays only that learner's next turn.
type Orchestrator struct {
	store   SessionStore
	machine *Machine
	locks   *keyLock
	events  EventSink // may be nil

	advanceKeyword string
}

func NewOrchestrator(store SessionStore, machine *Machine, events EventSink) *Orchestrator {
	return &Orchestrator{
		store:          store,
		machine:        machine,
		locks:          newKeyLock(),
		events:         events,
		advanceKeyword: machine.advanceKeyword,
	}
}

var ErrMissingLearner = errors.New("missing learner key")

// HandleTurn applies one learner message and persists the outcome.
// When the state machine fails (oracle outage included) nothing is
// saved, so the session is exactly as it was before the turn.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, message string) (TurnResult, error) {
	if userID == "" {
		return TurnResult{}, ErrMissingLearner
	}

	release := o.locks.acquire(userID)
	defer release()

	sess, err := o.loadOrFresh(ctx, userID)
	if err != nil {
		return TurnResult{}, err
	}

	cmd := ParseCommand(message, o.advanceKeyword)
	reply, err := o.machine.Step(ctx, sess, cmd)
	if err != nil {
		return TurnResult{}, err
	}

	if err := o.store.Save(ctx, sess); err != nil {
		return TurnResult{}, err
	}

	o.emit(ctx, "TurnHandled", userID, map[string]any{
		"status":             sess.Status,
		"questions_answered": sess.QuestionsAnswered,
		"current_index":      sess.CurrentIndex,
	})
	if sess.Status == StatusComplete {
		o.emit(ctx, "SessionComplete", userID, map[string]any{
			"correct": sess.CorrectCount,
			"total":   len(sess.QuestionOrder),
		})
	}

	return o.result(reply, sess), nil
}

// Reset discards the learner's session and immediately replays the
// first-turn greeting, under the same lock as a normal turn so it can
// never interleave with an in-flight answer.
func (o *Orchestrator) Reset(ctx context.Context, userID string) (TurnResult, error) {
	if userID == "" {
		return TurnResult{}, ErrMissingLearner
	}

	release := o.locks.acquire(userID)
	defer release()

	if err := o.store.Delete(ctx, userID); err != nil {
		return TurnResult{}, err
	}

	sess := NewSession(userID)
	reply, err := o.machine.Step(ctx, sess, Command{Kind: CommandGreet})
	if err != nil {
		return TurnResult{}, err
	}
	if err := o.store.Save(ctx, sess); err != nil {
		return TurnResult{}, err
	}

	o.emit(ctx, "SessionReset", userID, nil)
	return o.result(reply, sess), nil
}

// loadOrFresh returns the stored session, or a fresh one when none
// exists or the stored one violates invariants. Corrupt state is
// discarded, never patched.
func (o *Orchestrator) loadOrFresh(ctx context.Context, userID string) (*Session, error) {
	sess, err := o.store.Load(ctx, userID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return NewSession(userID), nil
	case errors.Is(err, ErrStateCorrupt):
		// fallthrough to discard below
	case err != nil:
		return nil, err
	default:
		if verr := sess.Validate(); verr == nil {
			return sess, nil
		}
	}

	log.Printf("quiz: discarding corrupt session for %s", userID)
	if derr := o.store.Delete(ctx, userID); derr != nil {
		return nil, derr
	}
	o.emit(ctx, "SessionDiscarded", userID, nil)
	return NewSession(userID), nil
}

func (o *Orchestrator) result(reply string, sess *Session) TurnResult {
	res := TurnResult{
		Reply:             reply,
		SessionComplete:   sess.Status == StatusComplete,
		TotalQuestions:    len(sess.QuestionOrder),
		QuestionsAnswered: sess.QuestionsAnswered,
	}
	if sess.QuestionsAnswered > 0 {
		score := float64(sess.CorrectCount) / float64(sess.QuestionsAnswered)
		res.Score = &score
	}
	return res
}

func (o *Orchestrator) emit(ctx context.Context, typ, key string, data any) {
	if o.events == nil {
		return
	}
	if err := o.events.Append(ctx, typ, key, data); err != nil {
		log.Printf("quiz: event append failed: %v", err)
	}
}

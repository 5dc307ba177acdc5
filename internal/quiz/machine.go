package quiz

import (
	"context"
	"fmt"
	"time"
)

// Machine applies one learner turn to a session. It mutates the session
// in place; callers must persist only when Step returns nil, which keeps
// failed turns (oracle outages included) free of side effects.
//
// Convention: grading does not advance the card. The learner answers,
// gets feedback, and sends the advance keyword to move on.
type Machine struct {
	oracle Oracle
	seq    *Sequencer

	advanceKeyword string
	historyLimit   int
}

func NewMachine(oracle Oracle, seq *Sequencer, advanceKeyword string, historyLimit int) *Machine {
	if advanceKeyword == "" {
		advanceKeyword = "next"
	}
	return &Machine{
		oracle:         oracle,
		seq:            seq,
		advanceKeyword: advanceKeyword,
		historyLimit:   historyLimit,
	}
}

const completeMsg = "This study session is already finished. Reset it to start over."

// Step runs one transition and returns the tutor's reply.
func (m *Machine) Step(ctx context.Context, sess *Session, cmd Command) (string, error) {
	defer func() { sess.UpdatedAt = time.Now().Unix() }()

	switch sess.Status {
	case StatusNotStarted:
		return m.start(ctx, sess)
	case StatusAwaitingAnswer:
		switch cmd.Kind {
		case CommandGreet:
			return m.reprompt(ctx, sess)
		case CommandAdvance:
			return m.advance(ctx, sess)
		default:
			return m.answer(ctx, sess, cmd.Text)
		}
	case StatusComplete:
		return completeMsg, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrStateCorrupt, sess.Status)
	}
}

// start materializes the question order and greets the learner. Any
// first message initializes; an empty one is the conventional trigger
// and is never forwarded to the oracle.
func (m *Machine) start(ctx context.Context, sess *Session) (string, error) {
	order, err := m.seq.Materialize(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	sess.QuestionOrder = order
	sess.CurrentIndex = 0

	if len(order) == 0 {
		sess.Status = StatusComplete
		return "Welcome! You don't have any flashcards yet — add a deck and reset to start studying.", nil
	}

	sess.Status = StatusAwaitingAnswer
	card, err := m.seq.Next(ctx, sess)
	if err != nil {
		return "", err
	}
	reply := fmt.Sprintf(
		"Welcome! Let's go through your %d flashcards. Answer in your own words, or say %q to skip ahead.\n\n%s",
		len(order), m.advanceKeyword, m.prompt(sess, card.Question))
	sess.appendHistory("", reply, m.historyLimit)
	return reply, nil
}

// reprompt handles empty input mid-session: repeat the question, grade
// nothing, change nothing.
func (m *Machine) reprompt(ctx context.Context, sess *Session) (string, error) {
	card, err := m.seq.Next(ctx, sess)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Still with me? %s", m.prompt(sess, card.Question)), nil
}

func (m *Machine) answer(ctx context.Context, sess *Session, text string) (string, error) {
	if sess.currentGraded() {
		return fmt.Sprintf("You've already answered this card. Say %q for the next one.", m.advanceKeyword), nil
	}

	card, err := m.seq.Next(ctx, sess)
	if err != nil {
		return "", err
	}

	j, err := m.oracle.Grade(ctx, Question{Prompt: card.Question, Reference: card.Answer}, text, sess.History)
	if err != nil {
		return "", err
	}

	sess.QuestionsAnswered++
	if j.Correct {
		sess.CorrectCount++
	}

	reply := fmt.Sprintf("%s\n\nSay %q to continue.", j.Reply, m.advanceKeyword)
	sess.appendHistory(text, reply, m.historyLimit)
	return reply, nil
}

func (m *Machine) advance(ctx context.Context, sess *Session) (string, error) {
	sess.CurrentIndex++

	card, err := m.seq.Next(ctx, sess)
	if err != nil {
		return "", err
	}

	var reply string
	if card == nil {
		sess.Status = StatusComplete
		reply = fmt.Sprintf(
			"That was the last card! You answered %d of %d questions, %d correct. Reset the session to practice again.",
			sess.QuestionsAnswered, len(sess.QuestionOrder), sess.CorrectCount)
	} else {
		reply = m.prompt(sess, card.Question)
	}
	sess.appendHistory(m.advanceKeyword, reply, m.historyLimit)
	return reply, nil
}

func (m *Machine) prompt(sess *Session, question string) string {
	return fmt.Sprintf("Question %d of %d: %s", sess.CurrentIndex+1, len(sess.QuestionOrder), question)
}

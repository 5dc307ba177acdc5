package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studydeck/studydeck/internal/llm"
)

// Question is the minimal view of a flashcard the oracle needs.
type Question struct {
	Prompt    string
	Reference string
}

// Judgment is the oracle's verdict on a submitted answer.
type Judgment struct {
	Correct bool
	Reply   string
}

// ErrOracleUnavailable signals a transient grading failure. The turn is
// aborted with the session untouched; the caller may retry.
var ErrOracleUnavailable = errors.New("grading oracle unavailable")

// Oracle judges a learner's free-text answer against the card's
// reference answer. Implementations must be safe for concurrent use.
type Oracle interface {
	Grade(ctx context.Context, q Question, submitted string, history []Turn) (Judgment, error)
}

const tutorSystemPrompt = `You are a tutor quizzing a student with their own flashcards.
You are given one flashcard question, its reference answer, and the student's answer.
Decide whether the student's answer is correct in substance; exact wording does not matter.
Reply with brief, encouraging feedback. When the answer is wrong, explain what the
reference answer says and how the student can improve.`

// gradeSchema constrains the model to a verdict plus a feedback line.
var gradeSchema = &llm.Schema{
	Name:        "grade-answer",
	Description: "Verdict and feedback for a flashcard answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the student's answer is correct in substance",
			},
			"reply": map[string]any{
				"type":        "string",
				"description": "Feedback shown to the student",
			},
		},
		"required":             []any{"correct", "reply"},
		"additionalProperties": false,
	},
}

// historyContextTurns is how many trailing transcript entries are sent
// to the model as conversational context.
const historyContextTurns = 10

// LLMOracle grades through an llm.Provider with a bounded timeout.
type LLMOracle struct {
	provider llm.Provider
	timeout  time.Duration
}

func NewLLMOracle(provider llm.Provider, timeout time.Duration) *LLMOracle {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMOracle{provider: provider, timeout: timeout}
}

func (o *LLMOracle) Grade(ctx context.Context, q Question, submitted string, history []Turn) (Judgment, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.provider.Generate(ctx, llm.Request{
		System:    tutorSystemPrompt,
		Messages:  buildGradeMessages(q, submitted, history),
		Schema:    gradeSchema,
		MaxTokens: 512,
	})
	if err != nil {
		return Judgment{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	var out struct {
		Correct bool   `json:"correct"`
		Reply   string `json:"reply"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return Judgment{}, fmt.Errorf("%w: malformed verdict: %v", ErrOracleUnavailable, err)
	}
	if out.Reply == "" {
		return Judgment{}, fmt.Errorf("%w: empty reply", ErrOracleUnavailable)
	}
	return Judgment{Correct: out.Correct, Reply: out.Reply}, nil
}

func buildGradeMessages(q Question, submitted string, history []Turn) []llm.Message {
	var msgs []llm.Message

	start := len(history) - historyContextTurns
	if start < 0 {
		start = 0
	}
	for _, t := range history[start:] {
		// Providers reject empty content blocks; a blank turn carries no
		// grading context anyway.
		if t.Text == "" {
			continue
		}
		role := llm.RoleUser
		if t.Role == RoleTutor {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}

	msgs = append(msgs, llm.Message{
		Role: llm.RoleUser,
		Content: fmt.Sprintf("Question: %s\nReference answer: %s\nStudent answer: %s",
			q.Prompt, q.Reference, submitted),
	})
	return msgs
}

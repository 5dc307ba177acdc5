package quiz

import "strings"

// CommandKind is the enumerated intent derived from a raw learner
// message at the orchestrator boundary. Transition logic never looks at
// raw strings.
type CommandKind int

const (
	// CommandGreet is an empty or whitespace-only message: initialize a
	// fresh session, or re-prompt the current question on a running one.
	CommandGreet CommandKind = iota

	// CommandAdvance moves to the next card without submitting an answer.
	CommandAdvance

	// CommandAnswer submits the message text as the answer to the
	// current card.
	CommandAnswer
)

// Command is a parsed learner turn.
type Command struct {
	Kind CommandKind

	// Text is the trimmed answer text; set only for CommandAnswer.
	Text string
}

// ParseCommand maps a raw message to a Command. The advance keyword is
// matched case-insensitively after trimming.
func ParseCommand(message, advanceKeyword string) Command {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return Command{Kind: CommandGreet}
	}
	if strings.EqualFold(trimmed, advanceKeyword) {
		return Command{Kind: CommandAdvance}
	}
	return Command{Kind: CommandAnswer, Text: trimmed}
}

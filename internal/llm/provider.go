package llm

import (
	"context"
	"encoding/json"
)

// Provider is the narrow transport the grading oracle speaks through.
// Implementations wrap one vendor SDK each; callers never see vendor types.
type Provider interface {
	// Generate sends a prompt and returns the model output. When the
	// request carries a Schema, the provider uses the vendor's structured
	// output mechanism and the returned Content is schema-valid JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the configured model identifier.
	ModelID() string
}

type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation so far, oldest first.
	Messages []Message

	// Schema, when set, constrains the response to JSON matching it.
	Schema *Schema

	MaxTokens int

	// Temperature in [0,1]; zero means deterministic.
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names a JSON Schema the response must conform to.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	// Content is schema-valid JSON when a Schema was requested,
	// otherwise raw text.
	Content json.RawMessage

	Usage Usage
	Model string

	// StopReason normalized to "end" or "max_tokens".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

var verdictSchema = &Schema{
	Name: "verdict-test",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{"type": "boolean"},
			"reply":   map[string]any{"type": "string"},
		},
		"required":             []any{"correct", "reply"},
		"additionalProperties": false,
	},
}

func TestValidateResponse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid", `{"correct": true, "reply": "yes"}`, true},
		{"missing field", `{"correct": true}`, false},
		{"wrong type", `{"correct": "yes", "reply": "x"}`, false},
		{"extra field", `{"correct": true, "reply": "x", "note": "y"}`, false},
		{"not json", `oops`, false},
		{"not an object", `[1,2,3]`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateResponse(verdictSchema, json.RawMessage(tc.raw))
			if tc.ok && err != nil {
				t.Fatalf("validateResponse = %v, want nil", err)
			}
			if !tc.ok {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("validateResponse = %v, want ErrInvalidResponse", err)
				}
			}
		})
	}
}

func TestValidateResponseNilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`anything at all`)); err != nil {
		t.Fatalf("nil schema: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("openai provider without key validated")
	}
	cfg.OpenAI.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cfg.Provider = "mock"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("mock provider: %v", err)
	}

	cfg.Provider = "llama"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown provider validated")
	}
}

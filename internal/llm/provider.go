package llm

import (
	"context"
	"encoding/json"
)

// Provider is the abstraction over a model backend. Every pipeline agent
// talks to a Provider; none of them know which vendor is behind it.
type Provider interface {
	// Generate sends a single request to the model and returns its output.
	// When the request carries a Schema, the provider uses its native
	// structured-output mechanism and the returned Content is JSON that
	// passed schema validation.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured with.
	ModelID() string
}

// Request describes one model invocation.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation. Pipeline agents send a single user
	// message; the repair path appends the invalid output and a correction.
	Messages []Message

	// Schema, when set, is the JSON Schema the response must conform to.
	Schema *Schema

	// MaxTokens bounds the response length.
	MaxTokens int

	// Temperature in [0,1]. Zero means deterministic.
	Temperature float64
}

// Message is one turn of conversation.
type Message struct {
	Role    Role
	Content string
}

// Role identifies the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names and defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema, kebab-case (e.g. "study-plan").
	Name string

	// Description tells the model what the schema represents.
	Description string

	// Definition is the JSON Schema document as a map.
	Definition map[string]any
}

// Response is the model's output.
type Response struct {
	// Content is the generated output. With a Schema in the request this
	// is the validated JSON object; without one it is raw text.
	Content json.RawMessage

	// Usage reports token consumption.
	Usage Usage

	// Model is the concrete model that served the request.
	Model string

	// StopReason is normalized to: "end", "max_tokens", "error".
	StopReason string
}

// Usage tracks token consumption for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

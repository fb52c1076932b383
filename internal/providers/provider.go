package providers

import (
	"context"
	"encoding/json"
)

// Provider is the language-model interface: one generation call in, either
// text or a structured tool-call intent out.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// SupportsToolCalls reports whether Generate honors native tool
	// declarations. Checked once at wiring time to pick a call strategy.
	SupportsToolCalls() bool
}

type Request struct {
	Prompt    string
	Tools     []ToolDecl // native declarations; ignored by text-only providers
	Model     string
	MaxTokens int
}

// ToolDecl is a tool declaration handed to a natively tool-calling model.
type ToolDecl struct {
	Name        string
	Description string
	InputSchema json.RawMessage // JSON Schema
}

// ToolCall is a structured tool-call intent returned by a native provider.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// Response carries the model output. ToolCall is nil when the model answered
// with plain text.
type Response struct {
	Text     string
	ToolCall *ToolCall
}

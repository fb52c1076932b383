package providers

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestConvertTools(t *testing.T) {
	decls := []ToolDecl{
		{
			Name:        "get_weather",
			Description: "returns current weather",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}}}`),
		},
	}
	out := convertTools(decls)
	if len(out) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(out))
	}
	if out[0].OfTool == nil || out[0].OfTool.Name != "get_weather" {
		t.Errorf("unexpected tool param: %+v", out[0])
	}
}

func TestConvertToolsBadSchema(t *testing.T) {
	decls := []ToolDecl{{Name: "broken", InputSchema: json.RawMessage(`not json`)}}
	out := convertTools(decls)
	if len(out) != 1 || out[0].OfTool == nil {
		t.Fatalf("expected a tool param even for a bad schema")
	}
}

func TestConvertResponseText(t *testing.T) {
	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "It is "},
			{Type: "text", Text: "sunny."},
		},
	}
	resp, err := convertResponse(msg)
	if err != nil {
		t.Fatalf("convertResponse: %v", err)
	}
	if resp.Text != "It is sunny." {
		t.Errorf("unexpected text: %q", resp.Text)
	}
	if resp.ToolCall != nil {
		t.Errorf("unexpected tool call: %+v", resp.ToolCall)
	}
}

func TestAnthropicSupportsToolCalls(t *testing.T) {
	p := NewAnthropicProvider("test-key")
	if !p.SupportsToolCalls() {
		t.Error("anthropic provider should report native tool support")
	}
}

func TestOpenAICompatIsTextOnly(t *testing.T) {
	p := NewOpenAICompatProvider("test-key", "")
	if p.SupportsToolCalls() {
		t.Error("openai-compat provider should not report native tool support")
	}
}

package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultMaxTokens      = 1024
)

// AnthropicProvider talks to the Anthropic Messages API. It supports native
// tool use, so the invoker can hand it schemas instead of parsing text.
type AnthropicProvider struct {
	client       *anthropic.Client
	defaultModel string
}

func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{
		client:       &client,
		defaultModel: defaultAnthropicModel,
	}
}

func (p *AnthropicProvider) SupportsToolCalls() bool {
	return true
}

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic generate failed: %w", err)
	}
	return convertResponse(resp)
}

func convertTools(decls []ToolDecl) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(decls))
	for i, d := range decls {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
			schema = anthropic.ToolInputSchemaParam{}
		}
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: schema,
			},
		}
	}
	return out
}

func convertResponse(resp *anthropic.Message) (*Response, error) {
	out := &Response{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			if out.ToolCall != nil {
				continue // one call per cycle; extras are dropped
			}
			raw, err := json.Marshal(block.Input)
			if err != nil {
				return nil, fmt.Errorf("marshal tool input: %w", err)
			}
			args := map[string]any{}
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("tool input is not an object: %w", err)
			}
			out.ToolCall = &ToolCall{Name: block.Name, Arguments: args}
		}
	}
	return out, nil
}

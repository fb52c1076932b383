package providers

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAICompatProvider works with OpenAI and any OpenAI-compatible API. It is
// used as a text-only provider here: tool declarations are ignored, so the
// invoker pairs it with the prompt-parsed call strategy.
type OpenAICompatProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAICompatProvider creates a provider; baseURL may be empty for the
// OpenAI default endpoint.
func NewOpenAICompatProvider(apiKey, baseURL string) *OpenAICompatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompatProvider{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultOpenAIModel,
	}
}

func (p *OpenAICompatProvider) SupportsToolCalls() bool {
	return false
}

func (p *OpenAICompatProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	oaiReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		oaiReq.MaxTokens = req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, oaiReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}
	return &Response{Text: resp.Choices[0].Message.Content}, nil
}

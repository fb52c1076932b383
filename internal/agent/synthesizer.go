package agent

import (
	"context"
	"fmt"

	"github.com/coopco/toolpilot/internal/providers"
)

const synthesisPromptFormat = `Answer the user query using the tool output below.

User query: %s

TOOL OUTPUT START
%s
TOOL OUTPUT END

Answer concisely, in the language of the query, using only information from
the tool output that is relevant to the query.`

// Synthesizer turns a query and normalized tool output into the final
// user-facing answer. One model call, no retry, output used verbatim.
type Synthesizer struct {
	Provider  providers.Provider
	Model     string
	MaxTokens int
}

func (s *Synthesizer) Synthesize(ctx context.Context, query, toolText string) (string, error) {
	resp, err := s.Provider.Generate(ctx, providers.Request{
		Prompt:    fmt.Sprintf(synthesisPromptFormat, query, toolText),
		Model:     s.Model,
		MaxTokens: s.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("synthesis call: %w", err)
	}
	return resp.Text, nil
}

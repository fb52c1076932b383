package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/coopco/toolpilot/internal/mcp"
	"github.com/coopco/toolpilot/internal/providers"
)

// Invocation is the outcome of one call strategy run. Either the model
// answered directly (Answered, no tool call was made) or Output holds the
// normalized tool result.
type Invocation struct {
	Answered bool
	Answer   string
	Output   string
}

// CallStrategy turns a confirmed selection into a tool invocation. Two
// implementations exist: structured (native tool calling) and prompt-parsed
// (for providers without a native primitive). Picked once at wiring time.
type CallStrategy interface {
	Invoke(ctx context.Context, srv *mcp.Server, tool mcp.ToolDef, query string) (*Invocation, error)
}

// NewCallStrategy picks the strategy matching the provider's capabilities.
func NewCallStrategy(p providers.Provider, model string, maxTokens int, toolTimeout time.Duration) CallStrategy {
	if p.SupportsToolCalls() {
		return &StructuredCallStrategy{Provider: p, Model: model, MaxTokens: maxTokens, ToolTimeout: toolTimeout}
	}
	return &PromptParsedCallStrategy{Provider: p, Model: model, MaxTokens: maxTokens, ToolTimeout: toolTimeout}
}

// StructuredCallStrategy hands the model the selected server's tool
// declarations and lets it request the call natively. A plain-text response
// short-circuits: it becomes the final answer and no tool runs.
type StructuredCallStrategy struct {
	Provider    providers.Provider
	Model       string
	MaxTokens   int
	ToolTimeout time.Duration
}

func (s *StructuredCallStrategy) Invoke(ctx context.Context, srv *mcp.Server, tool mcp.ToolDef, query string) (*Invocation, error) {
	decls := make([]providers.ToolDecl, len(srv.Tools))
	for i, d := range srv.Tools {
		decls[i] = providers.ToolDecl{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
	}

	resp, err := s.Provider.Generate(ctx, providers.Request{
		Prompt:    query,
		Tools:     decls,
		Model:     s.Model,
		MaxTokens: s.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("tool-use call: %w", err)
	}

	if resp.ToolCall == nil {
		return &Invocation{Answered: true, Answer: resp.Text}, nil
	}

	// The user confirmed one specific tool; a call naming anything else
	// never reaches the backend.
	name := resp.ToolCall.Name
	if name != tool.Name {
		return nil, fmt.Errorf("%w: model requested %q instead of the confirmed %q", ErrToolInvocation, name, tool.Name)
	}
	slog.Debug("native tool call", "server", srv.ID, "tool", name)
	return callAndNormalize(ctx, srv, name, resp.ToolCall.Arguments, s.ToolTimeout)
}

const argumentPromptFormat = `You will call the following tool to answer a user query.

Tool name: %s
Description: %s
Input JSON schema: %s

User query: %s

Reply with exactly one line in this form, where <args> is a JSON object
matching the schema:
name=%s, args=<args>

Do not explain. Do not output anything else.`

var argumentLine = regexp.MustCompile(`^name=([^,]+), args=(\{.*\})$`)

// PromptParsedCallStrategy derives concrete arguments through a one-line
// textual contract, for providers with no native tool-calling primitive.
type PromptParsedCallStrategy struct {
	Provider    providers.Provider
	Model       string
	MaxTokens   int
	ToolTimeout time.Duration
}

func (s *PromptParsedCallStrategy) Invoke(ctx context.Context, srv *mcp.Server, tool mcp.ToolDef, query string) (*Invocation, error) {
	schema := string(tool.InputSchema)
	if schema == "" {
		schema = "{}"
	}
	prompt := fmt.Sprintf(argumentPromptFormat, tool.Name, tool.Description, schema, query, tool.Name)

	resp, err := s.Provider.Generate(ctx, providers.Request{
		Prompt:    prompt,
		Model:     s.Model,
		MaxTokens: s.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("argument call: %w", err)
	}

	name, args, err := parseArgumentLine(resp.Text)
	if err != nil {
		return nil, err
	}
	if name != tool.Name {
		return nil, fmt.Errorf("%w: model named %q instead of %q", ErrArgumentSynthesis, name, tool.Name)
	}

	slog.Debug("prompt-derived tool call", "server", srv.ID, "tool", name)
	return callAndNormalize(ctx, srv, name, args, s.ToolTimeout)
}

// parseArgumentLine applies the fixed name=…, args=… grammar. It returns a
// typed error on malformed input, never panics on free text.
func parseArgumentLine(text string) (string, map[string]any, error) {
	raw := strings.TrimSpace(text)
	m := argumentLine.FindStringSubmatch(raw)
	if m == nil {
		return "", nil, fmt.Errorf("%w: %q", ErrArgumentSynthesis, raw)
	}
	name := strings.TrimSpace(m[1])
	blob := m[2]

	if !gjson.Valid(blob) || !gjson.Parse(blob).IsObject() {
		return "", nil, fmt.Errorf("%w: args is not a JSON object: %q", ErrArgumentSynthesis, blob)
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(blob), &args); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrArgumentSynthesis, err)
	}
	return name, args, nil
}

// callAndNormalize performs the single backend call and normalizes its
// payload. No retry: an invocation error aborts the cycle.
func callAndNormalize(ctx context.Context, srv *mcp.Server, name string, args map[string]any, timeout time.Duration) (*Invocation, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := srv.Client.CallTool(callCtx, name, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolInvocation, err)
	}
	return &Invocation{Output: Normalize(res)}, nil
}

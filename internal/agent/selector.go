package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/coopco/toolpilot/internal/mcp"
	"github.com/coopco/toolpilot/internal/providers"
	"github.com/coopco/toolpilot/internal/tools"
)

// Selection references one tool in the registry by its owning server.
type Selection struct {
	ServerID string
	ToolName string
}

// SelectionStrategy names exactly one (server, tool) pair for a query, or
// fails with one of the selection error classes.
type SelectionStrategy interface {
	Select(ctx context.Context, reg *tools.Registry, query string) (Selection, error)
}

// Select runs the selection protocol over the discovered servers. On success
// every connection except the chosen one is closed before returning; on
// failure all of them are closed, so no connection is left ambiguously open.
func Select(ctx context.Context, strategy SelectionStrategy, servers []*mcp.Server, query string) (*mcp.Server, mcp.ToolDef, error) {
	if len(servers) == 0 {
		return nil, mcp.ToolDef{}, ErrNoServerAvailable
	}

	reg := tools.Aggregate(servers)
	sel, err := strategy.Select(ctx, reg, query)
	if err != nil {
		closeAll(servers)
		return nil, mcp.ToolDef{}, err
	}

	var chosen *mcp.Server
	for _, s := range servers {
		if s.ID == sel.ServerID && chosen == nil {
			chosen = s
			continue
		}
		s.Close()
	}
	if chosen == nil {
		return nil, mcp.ToolDef{}, fmt.Errorf("%w: %s", ErrUnknownServer, sel.ServerID)
	}

	def, ok := reg.Lookup(sel.ServerID, sel.ToolName)
	if !ok {
		chosen.Close()
		return nil, mcp.ToolDef{}, fmt.Errorf("%w: %s", ErrUnknownTool, sel.ToolName)
	}
	return chosen, def, nil
}

func closeAll(servers []*mcp.Server) {
	for _, s := range servers {
		s.Close()
	}
}

const selectionPromptFormat = `You are a strict tool router. These are the available tools:

%s
User query: %s

Reply with exactly one line naming the single most relevant tool, in this form:
path=<server path>, name=<tool name>

Do not explain. Do not output anything else.`

// selectionLine is deliberately rigid: strict output format is the only
// defense against free-text drift from the model.
var selectionLine = regexp.MustCompile(`^path=(.+?), name=(.+)$`)

// ModelSelector asks the language model to pick the tool via a one-shot
// textual contract.
type ModelSelector struct {
	Provider  providers.Provider
	Model     string
	MaxTokens int
}

func (s *ModelSelector) Select(ctx context.Context, reg *tools.Registry, query string) (Selection, error) {
	prompt := fmt.Sprintf(selectionPromptFormat, reg.Enumerate(), query)

	resp, err := s.Provider.Generate(ctx, providers.Request{
		Prompt:    prompt,
		Model:     s.Model,
		MaxTokens: s.MaxTokens,
	})
	if err != nil {
		return Selection{}, fmt.Errorf("selection call: %w", err)
	}

	raw := strings.TrimSpace(resp.Text)
	m := selectionLine.FindStringSubmatch(raw)
	if m == nil {
		return Selection{}, fmt.Errorf("%w: %q", ErrSelectionParse, raw)
	}
	sel := Selection{ServerID: strings.TrimSpace(m[1]), ToolName: strings.TrimSpace(m[2])}

	if !reg.HasServer(sel.ServerID) {
		return Selection{}, fmt.Errorf("%w: %q", ErrUnknownServer, sel.ServerID)
	}
	if _, ok := reg.Lookup(sel.ServerID, sel.ToolName); !ok {
		return Selection{}, fmt.Errorf("%w: %q", ErrUnknownTool, sel.ToolName)
	}
	return sel, nil
}

// SubstringSelector scores tools by naive word containment against the query.
// It needs no model call but routes poorly on anything but keyword-shaped
// queries; the model selector is the default.
type SubstringSelector struct{}

func (SubstringSelector) Select(_ context.Context, reg *tools.Registry, query string) (Selection, error) {
	words := strings.Fields(strings.ToLower(query))

	best := -1
	bestScore := 0
	for i, e := range reg.Entries() {
		haystack := strings.ToLower(e.Tool.Name + " " + e.Tool.Description)
		score := 0
		for _, w := range words {
			if strings.Contains(haystack, strings.Trim(w, ".,?!")) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return Selection{}, fmt.Errorf("%w: no tool text overlaps the query", ErrSelectionParse)
	}
	e := reg.Entries()[best]
	return Selection{ServerID: e.ServerID, ToolName: e.Tool.Name}, nil
}

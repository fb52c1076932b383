package agent

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/coopco/toolpilot/internal/mcp"
)

// Normalize flattens a tool result into the single text blob handed to the
// synthesizer: text content items joined by blank lines; otherwise a
// pretty-printed serialization of the payload; a bare string passes through.
func Normalize(res *mcp.CallResult) string {
	var parts []string
	for _, item := range res.Content {
		if item.Type == "text" {
			parts = append(parts, item.Text)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n\n")
	}

	var s string
	if err := json.Unmarshal(res.Raw, &s); err == nil {
		return s
	}
	return strings.TrimRight(string(pretty.Pretty(res.Raw)), "\n")
}

package tools

import (
	"fmt"
	"strings"

	"github.com/coopco/toolpilot/internal/mcp"
)

// Entry tags one advertised tool with the server that owns it.
type Entry struct {
	ServerID string
	Tool     mcp.ToolDef
}

// Registry is the flattened view of every tool advertised by every reachable
// server. Pure aggregation, no I/O; entries keep server order then per-server
// tool order.
type Registry struct {
	entries []Entry
	index   map[string]int
}

func key(serverID, toolName string) string {
	return serverID + "\x00" + toolName
}

// Aggregate flattens the discovered servers into a registry.
func Aggregate(servers []*mcp.Server) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, srv := range servers {
		for _, def := range srv.Tools {
			r.index[key(srv.ID, def.Name)] = len(r.entries)
			r.entries = append(r.entries, Entry{ServerID: srv.ID, Tool: def})
		}
	}
	return r
}

// Entries returns all entries in aggregation order.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Len reports the number of aggregated tools.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Lookup resolves an exact (server id, tool name) pair.
func (r *Registry) Lookup(serverID, toolName string) (mcp.ToolDef, bool) {
	i, ok := r.index[key(serverID, toolName)]
	if !ok {
		return mcp.ToolDef{}, false
	}
	return r.entries[i].Tool, true
}

// HasServer reports whether any tool in the registry belongs to serverID.
func (r *Registry) HasServer(serverID string) bool {
	for _, e := range r.entries {
		if e.ServerID == serverID {
			return true
		}
	}
	return false
}

// Enumerate renders the registry as the one-tool-per-line listing embedded in
// selection prompts. Descriptions are flattened to a single line so a
// multi-line description cannot break the listing grammar.
func (r *Registry) Enumerate() string {
	var b strings.Builder
	for _, e := range r.entries {
		fmt.Fprintf(&b, "path=%s, name=%s, description=%s\n", e.ServerID, e.Tool.Name, flatten(e.Tool.Description))
	}
	return b.String()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

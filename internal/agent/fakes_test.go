package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/coopco/toolpilot/internal/mcp"
	"github.com/coopco/toolpilot/internal/providers"
)

// fakeProvider replays scripted responses and records every request.
type fakeProvider struct {
	responses []*providers.Response
	err       error
	toolCalls bool

	mu       sync.Mutex
	requests []providers.Request
}

func (f *fakeProvider) Generate(_ context.Context, req providers.Request) (*providers.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("fake provider: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeProvider) SupportsToolCalls() bool {
	return f.toolCalls
}

func textResponse(s string) *providers.Response {
	return &providers.Response{Text: s}
}

// fakeConn stands in for a spawned server connection.
type fakeConn struct {
	result  *mcp.CallResult
	callErr error

	mu       sync.Mutex
	closed   int
	called   []string
	lastArgs map[string]any
}

func (f *fakeConn) CallTool(_ context.Context, name string, args map[string]any) (*mcp.CallResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, name)
	f.lastArgs = args
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &mcp.CallResult{Raw: json.RawMessage(`{}`)}, nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeConn) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.called)
}

func textResult(texts ...string) *mcp.CallResult {
	items := make([]mcp.ContentItem, len(texts))
	for i, t := range texts {
		items[i] = mcp.ContentItem{Type: "text", Text: t}
	}
	raw, _ := json.Marshal(map[string]any{"content": items})
	return &mcp.CallResult{Content: items, Raw: raw}
}

func weatherServer(conn *fakeConn) *mcp.Server {
	return &mcp.Server{
		ID: "./weather.py",
		Tools: []mcp.ToolDef{{
			Name:        "get_weather",
			Description: "returns current weather",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}},"required":["location"]}`),
		}},
		Client: conn,
	}
}

func filesServer(conn *fakeConn) *mcp.Server {
	return &mcp.Server{
		ID: "./files.js",
		Tools: []mcp.ToolDef{{
			Name:        "read_file",
			Description: "reads a file from disk",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"path":{"type":"string"}}}`),
		}},
		Client: conn,
	}
}

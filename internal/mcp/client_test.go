package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"
)

// fakeServer answers JSON-RPC requests read from in with canned results keyed
// by method, echoing request IDs. Notification methods go to notif.
type fakeServer struct {
	results map[string]string
	notif   chan string
}

func (s *fakeServer) serve(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	for scanner.Scan() {
		var req rpcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		if req.ID == 0 {
			s.notif <- req.Method
			continue
		}
		result, ok := s.results[req.Method]
		if !ok {
			enc.Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}})
			continue
		}
		enc.Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(result)})
	}
}

func startFake(t *testing.T, results map[string]string) (*Client, *fakeServer) {
	t.Helper()
	clientIn, serverOut := io.Pipe()
	serverIn, clientOut := io.Pipe()

	srv := &fakeServer{results: results, notif: make(chan string, 4)}
	go srv.serve(serverIn, serverOut)

	c := newClient("fake", clientOut, clientIn)
	t.Cleanup(func() { c.Close() })
	return c, srv
}

func TestConnectHandshake(t *testing.T) {
	c, srv := startFake(t, map[string]string{
		"initialize": `{"protocolVersion":"2024-11-05","capabilities":{}}`,
	})
	if err := c.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	select {
	case m := <-srv.notif:
		if m != "notifications/initialized" {
			t.Errorf("expected initialized notification, got %q", m)
		}
	case <-time.After(time.Second):
		t.Fatal("no initialized notification received")
	}
}

func TestListToolsPreservesOrder(t *testing.T) {
	c, _ := startFake(t, map[string]string{
		"tools/list": `{"tools":[
			{"name":"zeta","description":"last alphabetically","inputSchema":{}},
			{"name":"alpha","description":"first alphabetically","inputSchema":{}}
		]}`,
	})
	defs, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "zeta" || defs[1].Name != "alpha" {
		t.Errorf("server order not preserved: %+v", defs)
	}
}

func TestCallToolContent(t *testing.T) {
	c, _ := startFake(t, map[string]string{
		"tools/call": `{"content":[{"type":"text","text":"72F and sunny"}]}`,
	})
	res, err := c.CallTool(context.Background(), "get_weather", map[string]any{"location": "Tokyo"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if len(res.Content) != 1 || res.Content[0].Text != "72F and sunny" {
		t.Errorf("unexpected content: %+v", res.Content)
	}
	if len(res.Raw) == 0 {
		t.Error("raw result not retained")
	}
}

func TestCallToolServerError(t *testing.T) {
	c, _ := startFake(t, nil)
	if _, err := c.CallTool(context.Background(), "missing", nil); err == nil {
		t.Fatal("expected JSON-RPC error")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, _ := startFake(t, nil)
	c.Close()
	c.Close()
	if _, err := c.ListTools(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

func TestSpawnRejectsUnknownExtension(t *testing.T) {
	_, err := Spawn(context.Background(), "server.rb", nil)
	if !errors.Is(err, ErrUnsupportedScript) {
		t.Errorf("expected ErrUnsupportedScript, got %v", err)
	}
}

func TestDiscoverSkipsFailedCandidates(t *testing.T) {
	servers := Discover(context.Background(), []string{"a.rb", "b.txt"}, nil)
	if len(servers) != 0 {
		t.Errorf("expected no reachable servers, got %d", len(servers))
	}
}

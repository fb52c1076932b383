package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

const protocolVersion = "2024-11-05"

// initTimeout bounds the initialize handshake; a server that never answers
// would otherwise hang discovery forever.
const initTimeout = 10 * time.Second

// ErrClosed is returned by requests issued after Close.
var ErrClosed = errors.New("mcp: client closed")

// Client manages one MCP server connection: a spawned process and a JSON-RPC
// 2.0 channel over its stdin/stdout.
type Client struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    io.Reader
	serverID  string
	writeMu   sync.Mutex
	reqID     atomic.Int64
	pending   map[int64]chan rpcResponse
	pendingMu sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// ToolDef is a tool definition as advertised by an MCP server.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ContentItem is one typed entry of a tool result's content sequence.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallResult is the raw payload of a tools/call response. Content holds the
// decoded content sequence when the server returned one; Raw always holds the
// full result object.
type CallResult struct {
	Content []ContentItem
	Raw     json.RawMessage
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// newClient wires a client over an already-open pipe pair and starts the read
// loop. The handshake has not run yet; callers use connect.
func newClient(serverID string, stdin io.WriteCloser, stdout io.Reader) *Client {
	c := &Client{
		stdin:    stdin,
		stdout:   stdout,
		serverID: serverID,
		pending:  make(map[int64]chan rpcResponse),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// connect performs the initialize handshake.
func (c *Client) connect(ctx context.Context) error {
	params, err := json.Marshal(map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]string{
			"name":    "toolpilot",
			"version": "0.1.0",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal init params: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	if _, err := c.sendRequest(initCtx, "initialize", params); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.sendNotification("notifications/initialized", nil); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}
	return nil
}

// Close releases the channel and terminates the server process. Safe to call
// any number of times and after a partial spawn.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.stdin != nil {
			c.stdin.Close()
		}
		if c.cmd != nil && c.cmd.Process != nil {
			c.cmd.Process.Kill()
			c.cmd.Wait()
		}
		slog.Debug("mcp client closed", "server", c.serverID)
	})
	return nil
}

// readLoop reads newline-delimited JSON-RPC responses and routes them to the
// pending request channels.
func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			slog.Warn("unparseable JSON-RPC line", "server", c.serverID, "err", err)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if ok {
			select {
			case ch <- resp:
			case <-c.done:
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("mcp read loop error", "server", c.serverID, "err", err)
	}
}

func (c *Client) sendRequest(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}

	id := c.reqID.Add(1)

	reqJSON, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respCh := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	_, err = c.stdin.Write(append(reqJSON, '\n'))
	c.writeMu.Unlock()

	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, fmt.Errorf("JSON-RPC error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

func (c *Client) sendNotification(method string, params json.RawMessage) error {
	reqJSON, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.stdin.Write(append(reqJSON, '\n')); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// ListTools calls tools/list and returns the definitions in the order the
// server reported them.
func (c *Client) ListTools(ctx context.Context) ([]ToolDef, error) {
	result, err := c.sendRequest(ctx, "tools/list", json.RawMessage("{}"))
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	var response struct {
		Tools []ToolDef `json:"tools"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("parse tools list: %w", err)
	}
	return response.Tools, nil
}

// CallTool issues a single tools/call request. No retries; the caller owns
// timeout policy via ctx.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	params, err := json.Marshal(map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tool params: %w", err)
	}

	result, err := c.sendRequest(ctx, "tools/call", params)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}

	res := &CallResult{Raw: result}
	var envelope struct {
		Content []ContentItem `json:"content"`
	}
	if err := json.Unmarshal(result, &envelope); err == nil {
		res.Content = envelope.Content
	}
	return res, nil
}

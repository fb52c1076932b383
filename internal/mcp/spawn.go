package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsupportedScript is returned when a locator's extension maps to no
// known interpreter.
var ErrUnsupportedScript = errors.New("mcp: unsupported server script extension")

var interpreters = map[string]string{
	".py": "python3",
	".js": "node",
}

// Conn is the slice of the client surface the orchestration layer needs
// after discovery.
type Conn interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error)
	Close() error
}

// Server couples one connected client with the tools it advertised during
// discovery. ID is the locator the server was spawned from.
type Server struct {
	ID     string
	Tools  []ToolDef
	Client Conn
}

func (s *Server) Close() error {
	return s.Client.Close()
}

// Spawn starts the server script named by locator, choosing the interpreter
// from the file extension, and completes the initialize handshake. The child
// inherits the current environment plus extraEnv.
func Spawn(ctx context.Context, locator string, extraEnv map[string]string) (*Client, error) {
	interp, ok := interpreters[strings.ToLower(filepath.Ext(locator))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScript, locator)
	}

	cmd := exec.CommandContext(ctx, interp, locator)
	cmd.Env = os.Environ()
	for k, v := range extraEnv {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start %s: %w", locator, err)
	}

	c := newClient(locator, stdin, stdout)
	c.cmd = cmd
	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, err
	}

	slog.Info("mcp server connected", "server", locator, "interpreter", interp)
	return c, nil
}

// Discover spawns every candidate locator and fetches its tool list. A
// candidate that fails to spawn or answer is logged and skipped; it never
// aborts the others. The returned servers keep locator order.
func Discover(ctx context.Context, locators []string, extraEnv map[string]string) []*Server {
	slots := make([]*Server, len(locators))
	var wg sync.WaitGroup
	for i, loc := range locators {
		wg.Add(1)
		go func(i int, loc string) {
			defer wg.Done()

			client, err := Spawn(ctx, loc, extraEnv)
			if err != nil {
				slog.Warn("server skipped", "server", loc, "err", err)
				return
			}
			defs, err := client.ListTools(ctx)
			if err != nil {
				client.Close()
				slog.Warn("server skipped", "server", loc, "err", err)
				return
			}
			slots[i] = &Server{ID: loc, Tools: defs, Client: client}
		}(i, loc)
	}
	wg.Wait()

	servers := make([]*Server, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			servers = append(servers, s)
		}
	}
	return servers
}

package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/coopco/toolpilot/internal/mcp"
)

// DiscoverFunc spawns the candidate servers and returns the reachable ones.
// Injected so the controller is testable without child processes.
type DiscoverFunc func(ctx context.Context, locators []string, extraEnv map[string]string) []*mcp.Server

// Controller drives one query cycle end to end — discover, select, confirm,
// invoke, synthesize — and loops until the quit sentinel. Cycle errors are
// reported and never terminate the loop; the active connection is released on
// every exit path.
type Controller struct {
	servers   []string
	serverEnv map[string]string
	selector  SelectionStrategy
	strategy  CallStrategy
	synth     *Synthesizer
	discover  DiscoverFunc
	in        *bufio.Scanner
	out       io.Writer
}

// ControllerConfig holds all dependencies and settings for a Controller.
type ControllerConfig struct {
	Servers   []string
	ServerEnv map[string]string
	Selector  SelectionStrategy
	Strategy  CallStrategy
	Synth     *Synthesizer
	Discover  DiscoverFunc
	In        io.Reader
	Out       io.Writer
}

func NewController(cfg ControllerConfig) *Controller {
	discover := cfg.Discover
	if discover == nil {
		discover = mcp.Discover
	}
	return &Controller{
		servers:   cfg.Servers,
		serverEnv: cfg.ServerEnv,
		selector:  cfg.Selector,
		strategy:  cfg.Strategy,
		synth:     cfg.Synth,
		discover:  discover,
		in:        bufio.NewScanner(cfg.In),
		out:       cfg.Out,
	}
}

// Run loops over query cycles until the input ends or the user quits.
func (c *Controller) Run(ctx context.Context) error {
	for {
		fmt.Fprint(c.out, "Query (empty or 'quit' to exit): ")
		line, ok := c.readLine()
		if !ok {
			return nil
		}
		query := strings.TrimSpace(line)
		if query == "" || strings.EqualFold(query, "quit") {
			return nil
		}

		if err := c.runCycle(ctx, query); err != nil {
			slog.Debug("cycle failed", "err", err)
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

// runCycle executes one discover → select → confirm → invoke → synthesize
// pass for a single query.
func (c *Controller) runCycle(ctx context.Context, query string) error {
	servers := c.discover(ctx, c.servers, c.serverEnv)

	srv, tool, err := Select(ctx, c.selector, servers, query)
	if err != nil {
		return err
	}
	// Guaranteed release of the one surviving connection, including on
	// error paths below.
	defer srv.Close()

	fmt.Fprintf(c.out, "Selected tool %q on %s. Run it? [y/N] ", tool.Name, srv.ID)
	confirm, ok := c.readLine()
	if !ok || !strings.EqualFold(strings.TrimSpace(confirm), "y") {
		fmt.Fprintln(c.out, "Cancelled.")
		return nil
	}

	inv, err := c.strategy.Invoke(ctx, srv, tool, query)
	if err != nil {
		return err
	}
	if inv.Answered {
		fmt.Fprintf(c.out, "Answer: %s\n", inv.Answer)
		return nil
	}

	answer, err := c.synth.Synthesize(ctx, query, inv.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Answer: %s\n", answer)
	return nil
}

func (c *Controller) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

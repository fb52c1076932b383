package agent

import "errors"

// Cycle-level failure classes. All of them abort the current query cycle and
// are reported by the controller; none of them terminate the process.
var (
	// ErrNoServerAvailable means every configured server failed discovery.
	ErrNoServerAvailable = errors.New("no MCP server available")

	// ErrSelectionParse means the model's selection response did not match
	// the fixed path=…, name=… format.
	ErrSelectionParse = errors.New("unparseable selection response")

	// ErrUnknownServer means the parsed server id matched no discovered
	// server.
	ErrUnknownServer = errors.New("selected server was not discovered")

	// ErrUnknownTool means the parsed tool name is not advertised by the
	// selected server.
	ErrUnknownTool = errors.New("selected tool is not advertised by that server")

	// ErrArgumentSynthesis means the model's argument line was unparseable
	// or its args blob was not a JSON object.
	ErrArgumentSynthesis = errors.New("unparseable tool arguments response")

	// ErrToolInvocation means the server rejected or failed the call.
	ErrToolInvocation = errors.New("tool invocation failed")
)

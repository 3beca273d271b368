// Package mcp exposes feature lookup and slug suggestion as MCP tools over stdio.
package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the MCP implementation name.
const ServerName = "spec"

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"feature_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"feature_suggest_slug": {
		def:     suggestSlugToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggestSlug },
	},
	"feature_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"feature_document": {
		def:     documentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDocument },
	},
}

// AllToolNames returns the sorted names of every tool.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the names in the list that are not tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with every tool not named in disabled.
func NewServer(h *Handlers, version string, disabled ...string) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[name] = true
	}

	for name, entry := range toolRegistry {
		if skip[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the tools over stdio until stdin closes.
func Run(h *Handlers, version string, disabled ...string) error {
	return server.ServeStdio(NewServer(h, version, disabled...))
}

package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

type toolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema inputSchema `json:"inputSchema"`
}

type inputSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]propertySchema `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

type propertySchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

var toolDefinitions = []toolDefinition{
	{
		Name:        "session_list",
		Description: "List active pagination sessions. Returns id, name, owner, status and current page for each.",
		InputSchema: inputSchema{
			Type:       "object",
			Properties: map[string]propertySchema{},
		},
	},
	{
		Name:        "session_get",
		Description: "Get a single pagination session by ID with full details including page count and button statistics.",
		InputSchema: inputSchema{
			Type: "object",
			Properties: map[string]propertySchema{
				"session_id": {Type: "string", Description: "Session ID"},
			},
			Required: []string{"session_id"},
		},
	},
	{
		Name:        "session_stop",
		Description: "Stop a pagination session. The mode controls what happens to the rendered message: delete removes it, disable_controls keeps it with inert buttons, remove_controls strips the buttons, none leaves it as is.",
		InputSchema: inputSchema{
			Type: "object",
			Properties: map[string]propertySchema{
				"session_id": {Type: "string", Description: "Session ID to stop"},
				"mode":       {Type: "string", Description: "Teardown mode", Enum: []string{"none", "delete", "disable_controls", "remove_controls"}},
			},
			Required: []string{"session_id"},
		},
	},
	{
		Name:        "session_stop_all",
		Description: "Stop every active pagination session. Returns the number of sessions stopped.",
		InputSchema: inputSchema{
			Type:       "object",
			Properties: map[string]propertySchema{},
		},
	},
	{
		Name:        "limit_set",
		Description: "Set an admission limit: the maximum number of concurrent sessions per owner, channel or guild. Fails if sessions are already running.",
		InputSchema: inputSchema{
			Type: "object",
			Properties: map[string]propertySchema{
				"scope":   {Type: "string", Description: "Limit scope", Enum: []string{"owner", "channel", "guild"}},
				"limit":   {Type: "number", Description: "Maximum concurrent sessions, at least 1"},
				"message": {Type: "string", Description: "Message returned to callers refused by this limit"},
			},
			Required: []string{"scope", "limit"},
		},
	},
	{
		Name:        "limit_remove",
		Description: "Remove the admission limit for a scope.",
		InputSchema: inputSchema{
			Type: "object",
			Properties: map[string]propertySchema{
				"scope": {Type: "string", Description: "Limit scope", Enum: []string{"owner", "channel", "guild"}},
			},
			Required: []string{"scope"},
		},
	},
}

type toolHandler func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error)

func (s *Server) getToolHandler(name string) (toolHandler, bool) {
	switch name {
	case "session_list":
		return s.handleSessionList, true
	case "session_get":
		return s.handleSessionGet, true
	case "session_stop":
		return s.handleSessionStop, true
	case "session_stop_all":
		return s.handleSessionStopAll, true
	case "limit_set":
		return s.handleLimitSet, true
	case "limit_remove":
		return s.handleLimitRemove, true
	default:
		return nil, false
	}
}

package ws

import "github.com/pagemenu/server/menu"

// Client → server.

type authParams struct {
	Token string   `json:"token"`
	Actor string   `json:"actor"`
	Roles []string `json:"roles,omitempty"`
}

type authResult struct {
	Version string `json:"version"`
}

type pressParams struct {
	SessionID string `json:"sessionId"`
	ButtonID  string `json:"buttonId"`
}

type replyParams struct {
	PromptID string `json:"promptId"`
	Text     string `json:"text"`
}

type replyResult struct {
	Accepted bool `json:"accepted"`
}

type sessionInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Status    string `json:"status,omitempty"`
	PageIndex int    `json:"pageIndex"`
}

type sessionListResult struct {
	Sessions []sessionInfo `json:"sessions"`
}

// Server → client notifications.

type renderParams struct {
	SessionID string    `json:"sessionId"`
	View      menu.View `json:"view"`
}

type deleteParams struct {
	SessionID string `json:"sessionId"`
}

type promptParams struct {
	PromptID string `json:"promptId"`
	Channel  string `json:"channel,omitempty"`
	Actor    string `json:"actor"`
	Text     string `json:"text"`
}

type promptClearParams struct {
	PromptID string `json:"promptId"`
}

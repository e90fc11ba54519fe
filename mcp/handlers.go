package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pagemenu/server/menu"
	"github.com/pagemenu/server/registry"
)

type sessionSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Owner       string `json:"owner,omitempty"`
	Status      string `json:"status,omitempty"`
	CurrentPage int    `json:"current_page,omitempty"`
}

func summarize(sess registry.Session) sessionSummary {
	out := sessionSummary{ID: sess.ID(), Name: sess.Name()}
	if ms, ok := sess.(*menu.Session); ok {
		out.Owner = ms.Owner()
		out.Status = string(ms.Status())
		out.CurrentPage = ms.CurrentIndex() + 1
	}
	return out
}

func (s *Server) handleSessionList(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	sessions := s.sessions.List()
	items := make([]sessionSummary, len(sessions))
	for i, sess := range sessions {
		items[i] = summarize(sess)
	}
	return jsonResult(items)
}

func (s *Server) handleSessionGet(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var params struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return ValidationError("invalid arguments"), nil
	}
	if params.SessionID == "" {
		return ValidationError("session_id is required"), nil
	}

	sess := s.sessions.Get(params.SessionID)
	if sess == nil {
		return NotFound("session", params.SessionID), nil
	}

	type buttonStats struct {
		Name        string `json:"name"`
		Type        string `json:"type"`
		TotalClicks int    `json:"total_clicks"`
		LastClicked string `json:"last_clicked,omitempty"`
	}
	detail := struct {
		sessionSummary
		PageCount int           `json:"page_count,omitempty"`
		Buttons   []buttonStats `json:"buttons,omitempty"`
	}{sessionSummary: summarize(sess)}

	if ms, ok := sess.(*menu.Session); ok {
		detail.PageCount = ms.Pages().Len()
		for _, b := range ms.Buttons().Ordered() {
			stats := b.Statistics()
			bs := buttonStats{
				Name:        b.Name,
				Type:        b.Type.String(),
				TotalClicks: stats.TotalClicks,
			}
			if !stats.LastClicked.IsZero() {
				bs.LastClicked = stats.LastClicked.UTC().Format("2006-01-02T15:04:05Z")
			}
			detail.Buttons = append(detail.Buttons, bs)
		}
	}
	return jsonResult(detail)
}

func (s *Server) handleSessionStop(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var params struct {
		SessionID string `json:"session_id"`
		Mode      string `json:"mode"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return ValidationError("invalid arguments"), nil
	}
	if params.SessionID == "" {
		return ValidationError("session_id is required"), nil
	}

	mode := menu.StopNone
	switch params.Mode {
	case "", string(menu.StopNone):
	case string(menu.StopDelete):
		mode = menu.StopDelete
	case string(menu.StopDisable):
		mode = menu.StopDisable
	case string(menu.StopRemove):
		mode = menu.StopRemove
	default:
		return ValidationError(fmt.Sprintf("unknown mode %q", params.Mode)), nil
	}

	sess := s.sessions.Get(params.SessionID)
	if sess == nil {
		return NotFound("session", params.SessionID), nil
	}

	var err error
	if ms, ok := sess.(*menu.Session); ok {
		err = ms.StopWith(mode)
	} else {
		err = sess.Stop()
	}
	if err != nil {
		return InternalError(err), nil
	}
	return mcp.NewToolResultText(`{"success":true}`), nil
}

func (s *Server) handleSessionStopAll(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	count := s.sessions.Count()
	if err := s.sessions.StopAll(); err != nil {
		return InternalError(err), nil
	}
	return jsonResult(struct {
		Stopped int `json:"stopped"`
	}{Stopped: count})
}

func (s *Server) handleLimitSet(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var params struct {
		Scope   string `json:"scope"`
		Limit   int    `json:"limit"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return ValidationError("invalid arguments"), nil
	}

	scope, ok := parseScope(params.Scope)
	if !ok {
		return ValidationError(fmt.Sprintf("unknown scope %q", params.Scope)), nil
	}
	if params.Limit < 1 {
		return ValidationError("limit must be at least 1"), nil
	}

	if err := s.sessions.SetLimit(scope, params.Limit, params.Message); err != nil {
		return InternalError(err), nil
	}
	return mcp.NewToolResultText(`{"success":true}`), nil
}

func (s *Server) handleLimitRemove(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var params struct {
		Scope string `json:"scope"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return ValidationError("invalid arguments"), nil
	}

	scope, ok := parseScope(params.Scope)
	if !ok {
		return ValidationError(fmt.Sprintf("unknown scope %q", params.Scope)), nil
	}

	s.sessions.RemoveLimit(scope)
	return mcp.NewToolResultText(`{"success":true}`), nil
}

func parseScope(s string) (registry.Scope, bool) {
	switch s {
	case string(registry.ScopeOwner):
		return registry.ScopeOwner, true
	case string(registry.ScopeChannel):
		return registry.ScopeChannel, true
	case string(registry.ScopeGuild):
		return registry.ScopeGuild, true
	default:
		return "", false
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

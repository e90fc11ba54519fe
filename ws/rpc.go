package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/pagemenu/server/logger"
	"github.com/pagemenu/server/menu"
	"github.com/pagemenu/server/registry"
)

// RPCHandler accepts viewer WebSocket connections and speaks JSON-RPC
// 2.0 with them.
type RPCHandler struct {
	token    string
	version  string
	devMode  bool
	hub      *Hub
	sessions *registry.Registry
}

func NewRPCHandler(token, version string, devMode bool, hub *Hub, sessions *registry.Registry) *RPCHandler {
	return &RPCHandler{
		token:    token,
		version:  version,
		devMode:  devMode,
		hub:      hub,
		sessions: sessions,
	}
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.devMode,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}

	h.handleConnection(r.Context(), conn)
}

func (h *RPCHandler) handleConnection(ctx context.Context, wsConn *websocket.Conn) {
	stream := newWebSocketStream(wsConn)
	connID := uuid.Must(uuid.NewV7()).String()
	h.HandleStream(ctx, stream, connID)
}

// HandleStream runs the JSON-RPC loop for one viewer connection until
// it disconnects.
func (h *RPCHandler) HandleStream(ctx context.Context, stream jsonrpc2.ObjectStream, connID string) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "websocket connection crashed", "connId", connID)
		}
	}()

	log := slog.With("connId", connID)
	log.Info("new viewer connection")

	handler := &rpcMethodHandler{
		RPCHandler: h,
		connID:     connID,
		log:        log,
	}

	rpcConn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(handler))
	handler.setConn(rpcConn)

	<-rpcConn.DisconnectNotify()

	h.hub.removeConn(connID)
	log.Info("viewer connection closed")
}

type rpcMethodHandler struct {
	*RPCHandler
	connID string
	log    *slog.Logger

	mu            sync.Mutex
	conn          *jsonrpc2.Conn
	actor         string
	authenticated bool
}

func (m *rpcMethodHandler) setConn(conn *jsonrpc2.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

func (m *rpcMethodHandler) isAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticated
}

func (m *rpcMethodHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "rpc handler panic", "method", req.Method, "connId", m.connID)
		}
	}()

	m.log.Debug("received request", "method", req.Method, "id", req.ID)

	// Auth must be the first request
	if !m.isAuthenticated() {
		if req.Method != "auth" {
			m.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, "first request must be auth")
			conn.Close()
			return
		}
		m.handleAuth(ctx, conn, req)
		return
	}

	switch req.Method {
	case "menu.press":
		m.handlePress(ctx, conn, req)
	case "menu.reply":
		m.handleReply(ctx, conn, req)
	case "menu.sessions":
		m.handleSessionList(ctx, conn, req)
	default:
		m.replyError(ctx, conn, req.ID, jsonrpc2.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (m *rpcMethodHandler) handleAuth(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params authParams
	if err := unmarshalParams(req, &params); err != nil {
		m.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		conn.Close()
		return
	}

	if subtle.ConstantTimeCompare([]byte(params.Token), []byte(m.token)) != 1 {
		m.log.Warn("invalid auth token")
		m.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, "invalid token")
		conn.Close()
		return
	}
	if params.Actor == "" {
		m.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "actor is required")
		conn.Close()
		return
	}

	m.mu.Lock()
	m.actor = params.Actor
	m.authenticated = true
	m.mu.Unlock()

	vc := &viewerConn{
		id:    m.connID,
		actor: params.Actor,
		roles: params.Roles,
		conn:  conn,
	}
	m.hub.addConn(vc)

	m.log.Info("viewer authenticated", "actor", params.Actor)
	if err := conn.Reply(ctx, req.ID, authResult{Version: m.version}); err != nil {
		m.log.Error("failed to send auth response", "error", err)
	}
	// Sessions started before this viewer connected are replayed so the
	// viewer sees their current pages.
	m.hub.replay(ctx, vc)
}

func (m *rpcMethodHandler) handlePress(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params pressParams
	if err := unmarshalParams(req, &params); err != nil {
		m.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	if params.SessionID == "" || params.ButtonID == "" {
		m.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "sessionId and buttonId are required")
		return
	}

	m.mu.Lock()
	actor := m.actor
	m.mu.Unlock()

	var roles []string
	if vc := m.hub.connByID(m.connID); vc != nil {
		roles = vc.roles
	}
	m.hub.Press(params.SessionID, actor, roles, params.ButtonID)

	if err := conn.Reply(ctx, req.ID, struct{}{}); err != nil {
		m.log.Error("failed to send press response", "error", err)
	}
}

func (m *rpcMethodHandler) handleReply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params replyParams
	if err := unmarshalParams(req, &params); err != nil {
		m.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	m.mu.Lock()
	actor := m.actor
	m.mu.Unlock()

	accepted := m.hub.Reply(params.PromptID, actor, params.Text)
	if err := conn.Reply(ctx, req.ID, replyResult{Accepted: accepted}); err != nil {
		m.log.Error("failed to send reply response", "error", err)
	}
}

func (m *rpcMethodHandler) handleSessionList(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var infos []sessionInfo
	for _, sess := range m.sessions.List() {
		info := sessionInfo{ID: sess.ID(), Name: sess.Name()}
		if ms, ok := sess.(*menu.Session); ok {
			info.Owner = ms.Owner()
			info.Status = string(ms.Status())
			info.PageIndex = ms.CurrentIndex()
		}
		infos = append(infos, info)
	}

	if err := conn.Reply(ctx, req.ID, sessionListResult{Sessions: infos}); err != nil {
		m.log.Error("failed to send session list", "error", err)
	}
}

func (m *rpcMethodHandler) replyError(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, code int64, message string) {
	err := &jsonrpc2.Error{
		Code:    code,
		Message: message,
	}
	if replyErr := conn.ReplyWithError(ctx, id, err); replyErr != nil {
		m.log.Error("failed to send error response", "error", replyErr)
	}
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return errors.New("params required")
	}
	return json.Unmarshal(*req.Params, v)
}

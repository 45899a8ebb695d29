package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/service"
	"github.com/xiaot623/librarydesk/internal/tools"
)

// ServiceName is the JSON-RPC receiver name, so methods are called as
// "Librarian.Chat", "Librarian.ListSessions" and so on.
const ServiceName = "Librarian"

// Server exposes the chat service over JSON-RPC for internal tooling.
type Server struct {
	mu        sync.Mutex
	listener  net.Listener
	closed    bool
	rpcServer *rpc.Server
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the chat service.
func NewServer(svc *service.Service) (*Server, error) {
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName(ServiceName, handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		done:      make(chan struct{}),
	}, nil
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts JSON-RPC connections on ln until it is closed. If Shutdown
// already ran, ln is closed and Serve returns at once.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			slog.Warn("rpc accept error", "error", err)
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections. It may be called before
// Serve, in which case Serve returns without accepting.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements the Librarian RPC methods.
type Handler struct {
	service *service.Service
}

// SessionArgs identifies a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// Empty is used for methods that take no arguments.
type Empty struct{}

// SessionsResponse lists known sessions.
type SessionsResponse struct {
	Sessions []domain.SessionSummary `json:"sessions"`
}

// MessagesResponse is the replay of one session.
type MessagesResponse struct {
	Messages []domain.MessageView `json:"messages"`
}

// ToolCallsResponse is the tool call audit of one session.
type ToolCallsResponse struct {
	ToolCalls []domain.ToolCall `json:"tool_calls"`
}

// ToolsResponse is the tool catalog.
type ToolsResponse struct {
	Tools []tools.Definition `json:"tools"`
}

// Chat runs one chat turn.
func (h *Handler) Chat(req *domain.ChatRequest, resp *domain.ChatResponse) error {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return errors.New("query is required")
	}

	result, err := h.service.Chat(context.Background(), *req)
	if err != nil {
		return err
	}
	if resp != nil && result != nil {
		*resp = *result
	}
	return nil
}

// ListSessions returns sessions, most recently active first.
func (h *Handler) ListSessions(_ *Empty, resp *SessionsResponse) error {
	sessions, err := h.service.ListSessions(context.Background())
	if err != nil {
		return err
	}
	resp.Sessions = sessions
	return nil
}

// GetMessages returns the messages of a session in order.
func (h *Handler) GetMessages(req *SessionArgs, resp *MessagesResponse) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}

	messages, err := h.service.GetMessages(context.Background(), req.SessionID)
	if err != nil {
		return err
	}
	resp.Messages = messages
	return nil
}

// GetToolCalls returns the tool calls of a session in order.
func (h *Handler) GetToolCalls(req *SessionArgs, resp *ToolCallsResponse) error {
	if req == nil || req.SessionID == "" {
		return errors.New("session_id is required")
	}

	calls, err := h.service.GetToolCalls(context.Background(), req.SessionID)
	if err != nil {
		return err
	}
	resp.ToolCalls = calls
	return nil
}

// ListTools returns the tool catalog.
func (h *Handler) ListTools(_ *Empty, resp *ToolsResponse) error {
	resp.Tools = h.service.Tools()
	return nil
}

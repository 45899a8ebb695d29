package rpc

import (
	"context"
	"net"
	"net/rpc/jsonrpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/librarydesk/internal/adapter/llm"
	"github.com/xiaot623/librarydesk/internal/config"
	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/policy"
	"github.com/xiaot623/librarydesk/internal/service"
	"github.com/xiaot623/librarydesk/internal/toolargs"
	"github.com/xiaot623/librarydesk/internal/tools"
	"github.com/xiaot623/librarydesk/tests/helpers"
)

func startServer(t *testing.T, mock *llm.MockClient) string {
	t.Helper()
	cfg := config.Defaults()
	db := helpers.NewSeededStore(t)
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)
	dispatcher := tools.NewDispatcher(db, toolargs.NewNormalizer(toolargs.DefaultPolicy()))
	svc, err := service.New(db, mock, dispatcher, cfg, engine, nil)
	require.NoError(t, err)

	srv, err := NewServer(svc)
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return ln.Addr().String()
}

func TestChatOverRPC(t *testing.T) {
	mock := llm.NewMockClient()
	mock.Script(`{"tool":"update_price","args":{"isbn":"978-0441172719","price":"12.5"}}`).Script("Dune now costs $12.50.")
	addr := startServer(t, mock)

	client, err := jsonrpc.Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	var resp domain.ChatResponse
	err = client.Call(ServiceName+".Chat", &domain.ChatRequest{Query: "set Dune to 12.50", SessionID: "rpc-1"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, domain.ToolUpdatePrice, resp.Tool)
	assert.Equal(t, "Dune now costs $12.50.", resp.Summary)

	var messages MessagesResponse
	require.NoError(t, client.Call(ServiceName+".GetMessages", &SessionArgs{SessionID: "rpc-1"}, &messages))
	require.Len(t, messages.Messages, 2)
	assert.Equal(t, domain.RoleAssistant, messages.Messages[1].Role)

	var calls ToolCallsResponse
	require.NoError(t, client.Call(ServiceName+".GetToolCalls", &SessionArgs{SessionID: "rpc-1"}, &calls))
	require.Len(t, calls.ToolCalls, 1)
	assert.Equal(t, domain.ToolCallStatusSucceeded, calls.ToolCalls[0].Status)

	var sessions SessionsResponse
	require.NoError(t, client.Call(ServiceName+".ListSessions", &Empty{}, &sessions))
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, "rpc-1", sessions.Sessions[0].SessionID)

	var catalog ToolsResponse
	require.NoError(t, client.Call(ServiceName+".ListTools", &Empty{}, &catalog))
	assert.Len(t, catalog.Tools, 6)
}

func TestRPCValidation(t *testing.T) {
	addr := startServer(t, llm.NewMockClient())

	client, err := jsonrpc.Dial("tcp", addr)
	require.NoError(t, err)
	defer client.Close()

	var resp domain.ChatResponse
	err = client.Call(ServiceName+".Chat", &domain.ChatRequest{Query: "  "}, &resp)
	assert.EqualError(t, err, "query is required")

	var messages MessagesResponse
	err = client.Call(ServiceName+".GetMessages", &SessionArgs{}, &messages)
	assert.EqualError(t, err, "session_id is required")
}

func TestShutdownWithoutStart(t *testing.T) {
	srv := &Server{done: make(chan struct{})}
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestServeAfterShutdownReturns(t *testing.T) {
	srv := &Server{done: make(chan struct{})}
	require.NoError(t, srv.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept accepting after Shutdown")
	}

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err, "listener is closed")
}

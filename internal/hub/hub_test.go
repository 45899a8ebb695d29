package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/librarydesk/internal/domain"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h, cancel
}

func receive(t *testing.T, conn *Connection) domain.SessionEvent {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		require.True(t, ok, "send channel closed")
		var event domain.SessionEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.SessionEvent{}
}

func TestPublishReachesSessionSubscribers(t *testing.T) {
	h, _ := startHub(t)
	a := h.NewConnection(nil, "s1")
	b := h.NewConnection(nil, "s2")
	require.True(t, h.Register(a))
	require.True(t, h.Register(b))
	require.Eventually(t, func() bool { return h.GetConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	h.Publish(domain.SessionEvent{Type: domain.EventTypeMessage, SessionID: "s1", Payload: "hello"})

	event := receive(t, a)
	assert.Equal(t, domain.EventTypeMessage, event.Type)
	assert.Equal(t, "s1", event.SessionID)
	assert.Equal(t, "hello", event.Payload)
	assert.NotZero(t, event.Ts)

	select {
	case <-b.Send:
		t.Fatal("event leaked to another session")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h, _ := startHub(t)
	conn := h.NewConnection(nil, "s1")
	require.True(t, h.Register(conn))
	require.Eventually(t, func() bool { return h.HasActiveConnections("s1") }, time.Second, 5*time.Millisecond)

	h.Unregister(conn)
	require.Eventually(t, func() bool { return !h.HasActiveConnections("s1") }, time.Second, 5*time.Millisecond)
	_, ok := <-conn.Send
	assert.False(t, ok)
}

func TestStoppedHubDoesNotBlock(t *testing.T) {
	h, cancel := startHub(t)
	conn := h.NewConnection(nil, "s1")
	require.True(t, h.Register(conn))
	cancel()

	_, ok := <-conn.Send
	assert.False(t, ok)
	assert.False(t, h.Register(h.NewConnection(nil, "s1")))
	h.Unregister(conn)
	h.Publish(domain.SessionEvent{SessionID: "s1"})
}

func TestSendToConnectionBufferFull(t *testing.T) {
	h := NewHub()
	conn := h.NewConnection(nil, "s1")
	for i := 0; i < cap(conn.Send); i++ {
		require.NoError(t, h.SendToConnection(conn, []byte("x")))
	}
	assert.ErrorIs(t, h.SendToConnection(conn, []byte("x")), ErrBufferFull)
}

package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/hub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscribe streams the events of a session over a websocket.
// GET /ws/:session_id
func (h *Handler) Subscribe(c echo.Context) error {
	if h.hub == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "live feed is disabled"})
	}
	sessionID := c.Param("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket", "error", err)
		return nil
	}

	conn := h.hub.NewConnection(ws, sessionID)

	// Queued before registration, so it is always the first frame.
	ack, _ := json.Marshal(domain.SessionEvent{
		Type:      domain.EventTypeSubscribed,
		SessionID: sessionID,
		Ts:        time.Now().UnixMilli(),
		Payload:   map[string]string{"connection_id": conn.ID},
	})
	if err := h.hub.SendToConnection(conn, ack); err != nil {
		slog.Warn("failed to queue subscription ack", "conn_id", conn.ID, "error", err)
	}

	if !h.hub.Register(conn) {
		_ = ws.Close()
		return nil
	}
	ws.SetReadLimit(maxMessageSize)

	go writePump(conn)
	go readPump(h.hub, conn)
	return nil
}

// readPump drains client frames so pongs and close messages are processed.
func readPump(hb *hub.Hub, conn *hub.Connection) {
	defer func() {
		hb.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error", "conn_id", conn.ID, "error", err)
			}
			return
		}
	}
}

// writePump writes session events and keepalive pings to the connection.
func writePump(conn *hub.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Warn("failed to write websocket message", "conn_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

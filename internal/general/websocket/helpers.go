package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsWriteClose sends a close control frame with the given code and reason.
func (ws *WebSocket) wsWriteClose(conn *websocket.Conn, code int, reason string) {
	mu := ws.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
	ws.writeLocks.Delete(conn)
}

// wsWriteMessage sets a short write deadline and writes a message.
func (ws *WebSocket) wsWriteMessage(conn *websocket.Conn, mt int, payload []byte) error {
	mu := ws.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(mt, payload)
}

// lockOf returns the mutex for a specific connection
func (ws *WebSocket) lockOf(conn *websocket.Conn) *sync.Mutex {
	if v, ok := ws.writeLocks.Load(conn); ok {
		if mu, ok := v.(*sync.Mutex); ok && mu != nil {
			return mu
		}
	}
	mu := &sync.Mutex{}
	actual, _ := ws.writeLocks.LoadOrStore(conn, mu)
	return actual.(*sync.Mutex)
}

// writeJSON marshals v and writes a single TextMessage to the given connection.
func (ws *WebSocket) writeJSON(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	mu := ws.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// RegisterDriverConn stores the active connection for a driver.
func (ws *WebSocket) RegisterDriverConn(driverID string, conn *websocket.Conn) {
	ws.driverConns.Store(driverID, conn)
}

// GetDriverConn returns the driver's active connection, if any.
func (ws *WebSocket) GetDriverConn(driverID string) (*websocket.Conn, bool) {
	v, ok := ws.driverConns.Load(driverID)
	if !ok {
		return nil, false
	}
	conn, ok := v.(*websocket.Conn)
	return conn, ok
}

// IsDriverConnected checks if a driver is currently connected via WebSocket
func (ws *WebSocket) IsDriverConnected(driverID string) bool {
	conn, ok := ws.GetDriverConn(driverID)
	return ok && conn != nil
}

// SendToDriver pushes an out-of-band message to a connected driver.
func (ws *WebSocket) SendToDriver(driverID string, msg interface{}) error {
	conn, ok := ws.GetDriverConn(driverID)
	if !ok {
		return fmt.Errorf("driver %s not connected", driverID)
	}
	return ws.writeJSON(conn, msg)
}

func (ws *WebSocket) RemoveDriverConn(driverID string) {
	ws.driverConns.Delete(driverID)
	ws.logger.Info(context.Background(), "driver_ws_removed", "Driver WebSocket connection removed",
		map[string]any{"driver_id": driverID})
}

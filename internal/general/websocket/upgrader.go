package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"fleet-track/internal/domain/user"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/general/jwt"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocket handles driver tracking connections with JWT auth.
type WebSocket struct {
	logger      *logger.Logger
	jwtMgr      *jwt.Manager
	pub         *rabbitmq.MQPublisher
	uow         ports.UnitOfWork
	assignments ports.AssignmentRepository
	deviations  ports.DeviationLogRepository
	planner     ports.RoutePlanner
	cooldown    ports.CooldownCache
	writeLocks  sync.Map
	driverConns sync.Map // key: driverID -> *websocket.Conn

	cooldownWindow time.Duration
}

// NewWebSocket creates a WebSocket handler with JWT auth.
func NewWebSocket(
	logger *logger.Logger,
	jwtMgr *jwt.Manager,
	pub *rabbitmq.MQPublisher,
	uow ports.UnitOfWork,
	assignments ports.AssignmentRepository,
	deviations ports.DeviationLogRepository,
	planner ports.RoutePlanner,
	cooldown ports.CooldownCache,
	cooldownWindow time.Duration,
) *WebSocket {
	return &WebSocket{
		logger:         logger,
		jwtMgr:         jwtMgr,
		pub:            pub,
		uow:            uow,
		assignments:    assignments,
		deviations:     deviations,
		planner:        planner,
		cooldown:       cooldown,
		cooldownWindow: cooldownWindow,
	}
}

// ConnectDriverTracking handles the per-driver tracking WebSocket.
func (ws *WebSocket) ConnectDriverTracking(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()               // close the socket last
	defer ws.writeLocks.Delete(conn) // forget per-connection mutex (idempotent)

	// 2) Set auth deadline
	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		ws.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		ws.sendAuthError(conn, "internal server error")
		return
	}

	// 3) First frame must be the auth message
	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			ws.logger.Error(r.Context(), "ws_auth_timeout", "Client disconnected before authentication", err, nil)
		} else {
			ws.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		}
		ws.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		return
	}

	if msgType != websocket.TextMessage {
		ws.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		ws.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, ws.jwtMgr, user.RoleDriver)
	if err != nil {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		ws.sendAuthError(conn, "authentication failed: invalid token")
		return
	}

	// 4) Path param must match the subject in claims
	if drvID := r.PathValue("driver_id"); drvID != "" && drvID != res.Claims.Subject {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Driver ID mismatch", nil, map[string]any{
			"path_driver_id": drvID,
			"token_subject":  res.Claims.Subject,
		})
		ws.sendAuthError(conn, "driver ID mismatch")
		return
	}
	driverID := res.Claims.Subject

	// 5) Send authentication success message
	if err := ws.sendAuthSuccess(conn, driverID); err != nil {
		ws.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	ws.logger.Info(r.Context(), "ws_connected", "Driver tracking WebSocket connected",
		map[string]any{"driver_id": driverID})

	// 6) Reset read deadline after auth
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	// 7) Start ping loop (every 30s) using the per-connection writer lock
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := ws.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				// Close socket to unblock reader; goroutine exits.
				_ = conn.Close()
				ws.logger.Error(r.Context(), "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}()

	// 8) Register this driver connection; unregister on exit
	ws.RegisterDriverConn(driverID, conn)
	defer ws.RemoveDriverConn(driverID)

	// 9) One tracking session per connection; owned by this goroutine only
	session := NewTrackingSession(ws.logger, ws.uow, ws.assignments, ws.deviations, ws.planner, ws.pub, ws.cooldown, ws.cooldownWindow, driverID)

	// 10) Read loop: each frame is a position report
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Error(r.Context(), "ws_unexpected_close", "Driver connection closed unexpectedly", err, map[string]any{
					"driver_id": driverID,
				})
				ws.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				ws.logger.Info(r.Context(), "ws_connection_closed", "Driver connection closed normally", map[string]any{
					"driver_id": driverID,
				})
				ws.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		var report contracts.WSPositionReport
		if err := json.Unmarshal(payload, &report); err != nil {
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"status":"error","message":"bad json"}`))
			continue
		}
		if report.AssignmentID == "" {
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"status":"error","message":"missing assignment_id"}`))
			continue
		}

		frames, done, err := session.HandleReport(r.Context(), report)
		if err != nil {
			ws.logger.Error(r.Context(), "tracking_report_failed", "Failed to process position report", err, map[string]any{
				"driver_id":     driverID,
				"assignment_id": report.AssignmentID,
			})
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"status":"error","message":"failed to process report"}`))
			continue
		}

		for _, frame := range frames {
			if err := ws.writeJSON(conn, frame); err != nil {
				ws.logger.Error(r.Context(), "tracking_frame_send_failed", "Failed to send status frame", err, map[string]any{
					"driver_id": driverID,
				})
				return
			}
		}

		if done {
			ws.wsWriteClose(conn, websocket.CloseNormalClosure, "arrived")
			break
		}
	}
}

// sendAuthError sends authentication error message to client
func (ws *WebSocket) sendAuthError(conn *websocket.Conn, message string) error {
	errorMsg := map[string]interface{}{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	}
	msgBytes, err := json.Marshal(errorMsg)
	if err != nil {
		return err
	}
	return ws.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}

// sendAuthSuccess sends authentication success message to client
func (ws *WebSocket) sendAuthSuccess(conn *websocket.Conn, driverID string) error {
	successMsg := map[string]interface{}{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		"driver_id": driverID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	msgBytes, err := json.Marshal(successMsg)
	if err != nil {
		return err
	}
	return ws.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}

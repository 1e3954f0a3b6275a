package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/iot-telemetry-state/pkg/common"
	"liyu1981.xyz/iot-telemetry-state/pkg/iot"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
	sendBuffer     = 256
)

// ServeWebsocket upgrades the request and pushes every update the engine
// publishes, starting with the broker status and each known device's state.
func (rs *RestfulServer) ServeWebsocket(c *gin.Context) {
	logger := common.GetLoggerWith(common.LoggerNameRestfulServer)

	conn, err := rs.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	updates, cancel := rs.Engine.Subscribe(sendBuffer)

	initial := []iot.Update{{Type: iot.UpdateStatus, Payload: iot.StatusPayload{Connected: rs.Engine.Connected()}}}
	for _, state := range rs.Engine.Devices() {
		initial = append(initial, iot.Update{Type: iot.UpdateTelemetry, Payload: state})
	}

	done := make(chan struct{})
	go func() {
		readPump(conn)
		close(done)
	}()
	writePump(conn, initial, updates, done, logger)
	cancel()
}

// readPump only services control frames; clients have nothing to say.
func readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, initial []iot.Update, updates <-chan iot.Update, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for _, update := range initial {
		if err := writeUpdate(conn, update); err != nil {
			return
		}
	}

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeUpdate(conn, update); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("Websocket write failed", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeUpdate(conn *websocket.Conn, update iot.Update) error {
	message, err := json.Marshal(update)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, message)
}

// NewUpgrader accepts any origin; the dashboard is served from elsewhere.
func NewUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

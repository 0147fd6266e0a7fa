package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
)

// Handler upgrades GET requests and attaches the connection to hub.
// Cross-origin upgrades are refused by the default origin check.
func Handler(hub *Hub, cfg config.WebSocketConfig, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.handler"))
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
	timing := TimingFrom(cfg)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error
			logger.WarnContext(r.Context(), "websocket upgrade failed",
				slog.String("error", err.Error()))
			return
		}

		client := NewClient(hub, conn, conn.RemoteAddr().String(), infrastructure.GetTraceID(r.Context()), timing, logger)
		if err := hub.Register(client); err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

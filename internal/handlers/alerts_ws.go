package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fleetwatch/fleetwatch/internal/ws"
)

// AlertsWSHandler upgrades dashboard connections onto the live alert feed.
type AlertsWSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewAlertsWSHandler creates a WebSocket handler bound to the hub.
func NewAlertsWSHandler(hub *ws.Hub) *AlertsWSHandler {
	return &AlertsWSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is handled by the CORS middleware and
			// token auth; the upgrade itself accepts any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetupRoutes configures the WebSocket route.
func (h *AlertsWSHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/alerts", h.handleAlertsFeed)
}

func (h *AlertsWSHandler) handleAlertsFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

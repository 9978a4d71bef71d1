package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/run-contest/hub"
	"github.com/Dosada05/run-contest/services"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub            *hub.Hub
	contestService services.ContestService
	logger         *slog.Logger
}

func NewWebSocketHandler(h *hub.Hub, cs services.ContestService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: h, contestService: cs, logger: logger}
}

// ServeWs streams the events of one contest. Clients connect to
// /ws/contests/{contestAddress}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	address, err := addressFromURL(r, "contestAddress")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.contestService.Get(r.Context(), address); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("contest", address.String()), slog.Any("error", err))
		return
	}

	client := hub.NewClient(h.hub, conn, hub.RoomFor(address))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client joined", slog.String("room", client.Room()))
}

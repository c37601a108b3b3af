package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Handler upgrades HTTP requests to websocket connections and hands them to
// the event router.
type Handler struct {
	router   *EventRouter
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new websocket handler
func NewHandler(router *EventRouter, logger *slog.Logger) *Handler {
	return &Handler{
		router: router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Clients connect from phones on arbitrary origins
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles websocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := model.ConnectionID(uuid.New().String())
	client := NewClient(id, conn, h.router, h.logger)
	h.router.Hub().Register(client)

	h.logger.Info("websocket connected",
		slog.String("connection_id", string(id)),
		slog.String("remote_addr", r.RemoteAddr))

	client.Run()
}

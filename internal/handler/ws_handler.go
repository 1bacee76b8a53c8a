package handler

import (
	"net/http"
	"strings"

	"postline-server/internal/config"
	"postline-server/internal/middleware"
	"postline-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type WebSocketHandler struct {
	manager    *websocket.Manager
	upgrader   ws.Upgrader
	trustProxy bool
	logger     zerolog.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigins (comma separated)
// and from clients that send no Origin header.
func NewWebSocketHandler(manager *websocket.Manager, cfg config.WebSocketConfig, allowedOrigins string, trustProxy bool, logger zerolog.Logger) *WebSocketHandler {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}

	return &WebSocketHandler{
		manager: manager,
		upgrader: ws.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
		trustProxy: trustProxy,
		logger:     logger.With().Str("component", "ws").Logger(),
	}
}

// HandleConnection runs behind the optional session middleware: signed-in
// viewers are capped per user, anonymous ones per address.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := websocket.NewClient(uuid.New().String(), userID, clientIP(r, h.trustProxy), conn, h.manager)
	if !h.manager.Join(client) {
		conn.Close()
		return
	}

	h.logger.Debug().Str("client_id", client.ID).Str("user_id", userID).Msg("connection upgraded")

	go client.WritePump()
	go client.ReadPump()
}

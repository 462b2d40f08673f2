package handler

import (
	"context"
	"net/http"

	"github.com/dafibh/kredo/kredo-backend/internal/middleware"
	"github.com/dafibh/kredo/kredo-backend/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// StreamTokenValidator resolves the connect token to a principal
type StreamTokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*middleware.Principal, error)
}

// WebSocketHandler serves the loan event stream
type WebSocketHandler struct {
	hub            *websocket.Hub
	validator      StreamTokenValidator
	allowedOrigins map[string]struct{}
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, validator StreamTokenValidator, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:            hub,
		validator:      validator,
		allowedOrigins: make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, origin := range allowedOrigins {
		h.allowedOrigins[origin] = struct{}{}
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts configured browser origins and non-browser clients
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if _, ok := h.allowedOrigins[origin]; ok {
		return true
	}

	log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
	return false
}

// HandleWS handles GET /ws?token=. Clients receive their own loan events,
// admins receive every loan event.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	principal, err := h.validator.ValidateToken(c.Request().Context(), token)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket token rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Str("user_id", principal.UserID.String()).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, principal)
	if err := h.hub.Register(client); err != nil {
		_ = client.Close()
		return nil
	}

	log.Info().
		Str("user_id", principal.UserID.String()).
		Str("client_id", client.ID()).
		Bool("admin", principal.IsAdmin()).
		Msg("WebSocket client connected")

	go client.Serve(h.hub)
	return nil
}

package live

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/eleven-am/formpulse/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FormChecker verifies a form id before a dashboard may subscribe to it.
type FormChecker interface {
	Exists(ctx context.Context, formID string) (bool, error)
}

type Handler struct {
	hub    *Hub
	forms  FormChecker
	logger *slog.Logger
}

func NewHandler(hub *Hub, forms FormChecker, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		forms:  forms,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/:id/live", h.HandleConnection)
}

func (h *Handler) HandleConnection(c echo.Context) error {
	formID := c.Param("id")

	ok, err := h.forms.Exists(c.Request().Context(), formID)
	if err != nil {
		h.logger.Error("check form failed", "error", err, "form_id", formID)
		return shared.InternalError("subscribe_failed", "failed to load form")
	}
	if !ok {
		return shared.NotFound("form_not_found", "form not found")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "form_id", formID)
		return err
	}

	conn := NewConn(ws, formID, h.logger)
	h.hub.Join(conn, formID)
	h.logger.Info("dashboard connected", "form_id", formID)

	go conn.writePump()
	conn.readPump(h.hub)

	h.logger.Info("dashboard disconnected", "form_id", formID)
	return nil
}

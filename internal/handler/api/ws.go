package api

import (
	"CoinPulse/internal/service/hub"
	xlogger "CoinPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WSHandler upgrades clients into the broadcast hub.
type WSHandler struct {
	logger *xlogger.Logger
	hub    *hub.Hub
}

func NewWSHandler(logger *xlogger.Logger, h *hub.Hub) *WSHandler {
	return &WSHandler{logger: logger, hub: h}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Connect)
}

func (h *WSHandler) Connect(c echo.Context) error {
	if err := h.hub.HandleWS(c); err != nil {
		h.logger.Error("ws upgrade failed", xlogger.Error(err))
		return err
	}
	return nil
}

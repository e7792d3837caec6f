package api

import (
	models "CoinPulse/internal/domain/models"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/usecase"
	xhttp "CoinPulse/pkg/http"
	xlogger "CoinPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TrendHandler exposes the global trend authority. Writes are rate limited
// per client IP so a misbehaving operator script can't thrash every runner's
// scenario state.
type TrendHandler struct {
	logger  *xlogger.Logger
	trend   *usecase.TrendUseCase
	limiter *ratelimit.Limiter
}

func NewTrendHandler(logger *xlogger.Logger, trend *usecase.TrendUseCase, limiter *ratelimit.Limiter) *TrendHandler {
	return &TrendHandler{logger: logger, trend: trend, limiter: limiter}
}

func (h *TrendHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/trend", h.Get)
	g.POST("/trend", h.Set)
}

func (h *TrendHandler) Get(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"trend": h.trend.Current(c.Request().Context()),
		"modes": h.trend.Modes(),
	})
}

func (h *TrendHandler) Set(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow("trend:"+c.RealIP(), 5, 1) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many trend changes", 429))
	}

	req := &models.SetTrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	mode, err := h.trend.Set(c.Request().Context(), req.Trend)
	if err != nil {
		h.logger.Error("set trend error", xlogger.Error(err), xlogger.String("trend", req.Trend))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("could not set trend: %v", err).WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"trend": string(mode)})
}

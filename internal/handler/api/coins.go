package api

import (
	models "CoinPulse/internal/domain/models"
	"CoinPulse/internal/usecase"
	xhttp "CoinPulse/pkg/http"
	xlogger "CoinPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CoinsHandler exposes instrument CRUD and chart history endpoints.
type CoinsHandler struct {
	logger *xlogger.Logger
	insts  *usecase.InstrumentsUseCase
	chart  *usecase.ChartUseCase
}

func NewCoinsHandler(logger *xlogger.Logger, insts *usecase.InstrumentsUseCase, chart *usecase.ChartUseCase) *CoinsHandler {
	return &CoinsHandler{logger: logger, insts: insts, chart: chart}
}

func (h *CoinsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/coins", h.List)
	g.GET("/coins/:name", h.Get)
	g.GET("/coins/:name/chart", h.Chart)
	g.DELETE("/coins/:name", h.Delete)
	g.POST("/chart/add-coin", h.Add)
	g.POST("/chart/update-duration", h.UpdateDuration)
}

func (h *CoinsHandler) List(c echo.Context) error {
	insts, err := h.insts.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list coins error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not list coins").WithError(err))
	}
	return xhttp.ListResponse(c, insts, int64(len(insts)))
}

func (h *CoinsHandler) Get(c echo.Context) error {
	name := c.Param("name")
	inst, err := h.insts.Get(c.Request().Context(), name)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("coin %s not found", name).WithError(err))
	}
	return xhttp.SuccessResponse(c, inst)
}

func (h *CoinsHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.chart.GetChart(c.Request().Context(), usecase.GetChartParams{
		CoinName: c.Param("name"),
		Interval: req.Interval,
		Limit:    req.Limit,
		From:     req.From,
		To:       req.To,
	})
	if err != nil {
		h.logger.Error("chart usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("chart for %s unavailable", c.Param("name")).WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CoinsHandler) Add(c echo.Context) error {
	req := &models.AddCoinRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	inst, err := h.insts.Add(c.Request().Context(), usecase.AddInstrumentParams{
		Symbol:           req.CoinName,
		Kind:             req.Kind,
		BasePrice:        req.BasePrice,
		PayoutPercentage: req.PayoutPercentage,
		Interval:         req.Interval,
	})
	if err != nil {
		h.logger.Error("add coin error", xlogger.Error(err), xlogger.String("coin", req.CoinName))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("could not add coin: %v", err).WithError(err))
	}
	return xhttp.CreatedResponse(c, inst)
}

func (h *CoinsHandler) UpdateDuration(c echo.Context) error {
	req := &models.UpdateDurationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.insts.UpdateInterval(c.Request().Context(), req.CoinName, req.Duration); err != nil {
		h.logger.Error("update duration error", xlogger.Error(err), xlogger.String("coin", req.CoinName))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("could not update duration: %v", err).WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{
		"coinName": req.CoinName,
		"duration": req.Duration,
	})
}

func (h *CoinsHandler) Delete(c echo.Context) error {
	name := c.Param("name")
	if err := h.insts.Remove(c.Request().Context(), name); err != nil {
		h.logger.Error("delete coin error", xlogger.Error(err), xlogger.String("coin", name))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("coin %s not found", name).WithError(err))
	}
	return xhttp.NoContentResponse(c)
}

package api

import (
	"errors"
	"strings"

	models "MarketLens/internal/domain/models"
	"MarketLens/internal/usecase"
	xhttp "MarketLens/pkg/http"
	xlogger "MarketLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler implements Echo-based HTTP handlers following Clean Architecture.
type MarketHandler struct {
	logger *xlogger.Logger
	svc    *usecase.MarketService
}

func NewMarketHandler(logger *xlogger.Logger, svc *usecase.MarketService) *MarketHandler {
	return &MarketHandler{logger: logger, svc: svc}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/prices", h.Prices)
	g.GET("/history", h.History)
	g.GET("/indicators", h.Indicators)
	g.GET("/signal", h.Signal)
	g.GET("/correlation", h.Correlation)
	g.GET("/volatility", h.Volatility)
	g.GET("/fundamentals", h.Fundamentals)
	g.GET("/movers", h.Movers)
	g.GET("/sectors", h.Sectors)
	g.GET("/summary", h.Summary)
}

func (h *MarketHandler) Prices(c echo.Context) error {
	req := &models.PricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	board := h.svc.GetCurrentPrices(c.Request().Context(), splitSymbols(req.Symbols))
	return xhttp.SuccessResponse(c, board)
}

func (h *MarketHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	series, failed, freshness := h.svc.GetHistorical(c.Request().Context(), splitSymbols(req.Symbols), models.NormalizePeriod(req.Period))
	return xhttp.SuccessResponse(c, models.HistoryResponse{
		Series:    series,
		Failed:    failed,
		Freshness: freshness,
	})
}

func (h *MarketHandler) Indicators(c echo.Context) error {
	req := &models.IndicatorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	table, _, err := h.svc.GetIndicators(c.Request().Context(), req.Symbol, models.NormalizePeriod(req.Period))
	if err != nil {
		h.logger.Error("indicators usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, fetchAppError(err))
	}
	return xhttp.SuccessResponse(c, table)
}

func (h *MarketHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, _, err := h.svc.GetSignal(c.Request().Context(), req.Symbol, models.NormalizePeriod(req.Period))
	if err != nil {
		h.logger.Error("signal usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, fetchAppError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *MarketHandler) Correlation(c echo.Context) error {
	req := &models.CorrelationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	matrix, err := h.svc.GetCorrelation(c.Request().Context(), splitSymbols(req.Symbols), models.NormalizePeriod(req.Period))
	if err != nil {
		h.logger.Error("correlation usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, fetchAppError(err))
	}
	return xhttp.SuccessResponse(c, matrix)
}

func (h *MarketHandler) Volatility(c echo.Context) error {
	req := &models.VolatilityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ranking, err := h.svc.GetVolatilityRanking(c.Request().Context(), splitSymbols(req.Symbols), models.NormalizePeriod(req.Period))
	if err != nil {
		h.logger.Error("volatility usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, fetchAppError(err))
	}
	return xhttp.SuccessResponse(c, ranking)
}

func (h *MarketHandler) Fundamentals(c echo.Context) error {
	req := &models.FundamentalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, _, err := h.svc.GetFundamentals(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("fundamentals usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, fetchAppError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *MarketHandler) Movers(c echo.Context) error {
	req := &models.MoversRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	movers := h.svc.GetMarketMovers(c.Request().Context(), req.Top)
	return xhttp.SuccessResponse(c, movers)
}

func (h *MarketHandler) Sectors(c echo.Context) error {
	report := h.svc.GetSectorPerformance(c.Request().Context())
	return xhttp.SuccessResponse(c, report)
}

func (h *MarketHandler) Summary(c echo.Context) error {
	summary := h.svc.GetMarketSummary(c.Request().Context())
	return xhttp.SuccessResponse(c, summary)
}

// splitSymbols parses a comma-separated symbol list, dropping empty entries.
func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}

// fetchAppError maps the fetch error taxonomy to HTTP application errors.
func fetchAppError(err error) error {
	var ferr *models.FetchError
	if !errors.As(err, &ferr) {
		return xhttp.BadRequestError(err.Error())
	}
	switch ferr.Kind {
	case models.ErrNotFound:
		return xhttp.NotFoundError(ferr.Error()).WithParam("symbol", ferr.Symbol)
	case models.ErrMalformed, models.ErrTransient:
		return xhttp.UpstreamError(ferr.Error()).WithParam("symbol", ferr.Symbol)
	default:
		return xhttp.InternalError(ferr.Error())
	}
}

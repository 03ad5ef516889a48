package api

import (
	"errors"
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/fetch"
	"StockPulse/internal/indicator"
	"StockPulse/internal/market"
	"StockPulse/internal/usecase"
	xhttp "StockPulse/pkg/http"
	xlogger "StockPulse/pkg/logger"
	"StockPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler exposes the analysis and fetch diagnostics over HTTP.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	analysis *usecase.Analysis
	auth     echo.MiddlewareFunc
}

// NewAnalysisHandler builds the handler. auth guards the endpoints
// that trigger upstream fetches; diagnostics stay open.
func NewAnalysisHandler(logger *xlogger.Logger, analysis *usecase.Analysis, auth echo.MiddlewareFunc) *AnalysisHandler {
	return &AnalysisHandler{logger: logger, analysis: analysis, auth: auth}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/analyze-stock", h.Analyze, h.auth)

	g := e.Group("/api")
	g.GET("/bars", h.Bars, h.auth)
	g.GET("/connectivity", h.Connectivity)
	g.GET("/breakers", h.Breakers)

	e.GET("/health", h.Health)
	e.GET("/health/ready", h.Ready)
	e.GET("/health/live", h.Live)
}

var startedAt = time.Now()

func (h *AnalysisHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(startedAt).String(),
	})
}

// Live answers as long as the process is up.
func (h *AnalysisHandler) Live(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{"status": "alive"})
}

// Ready reports whether the service can serve requests at all: at
// least one breaker not OPEN, or none created yet.
func (h *AnalysisHandler) Ready(c echo.Context) error {
	stats := h.analysis.Breakers()
	open := 0
	for _, st := range stats {
		if st.State == fetch.StateOpen {
			open++
		}
	}
	if len(stats) > 0 && open == len(stats) {
		return xhttp.DataResponse(c, 503, map[string]interface{}{
			"status": "degraded", "open_breakers": open,
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ready", "open_breakers": open,
	})
}

func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.analysis.Analyze(c.Request().Context(), req.StockCode, models.MarketSegment(req.MarketType))
	if err != nil {
		return h.fetchError(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *AnalysisHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := market.Resolve(req.Code, models.MarketSegment(req.Segment))
	if err != nil {
		return h.fetchError(c, err)
	}
	dr, err := parseRange(req.Start, req.End)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}

	series, source, cached, err := h.analysis.Series(c.Request().Context(), id, dr)
	if err != nil {
		return h.fetchError(c, err)
	}
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && series.Len() > limit {
		series = series[series.Len()-limit:]
	}
	return xhttp.SuccessResponse(c, models.BarsResponse{
		Identifier: id.String(),
		Source:     source,
		Cached:     cached,
		Rows:       series.Len(),
		Bars:       series,
	})
}

func (h *AnalysisHandler) Connectivity(c echo.Context) error {
	segments := h.analysis.Connectivity(c.Request().Context())
	healthy := len(segments) > 0
	for _, ok := range segments {
		if !ok {
			healthy = false
		}
	}
	return xhttp.SuccessResponse(c, models.ConnectivityResponse{
		Segments: segments,
		Healthy:  healthy,
	})
}

func (h *AnalysisHandler) Breakers(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.analysis.Breakers())
}

// fetchError maps domain failures onto HTTP statuses: identifier
// problems are the caller's fault, thin history is a 404-ish absence,
// everything else is an upstream failure surfaced as 502.
func (h *AnalysisHandler) fetchError(c echo.Context, err error) error {
	var verr *market.ValidationError
	if errors.As(err, &verr) {
		return xhttp.BadRequestResponse(c, verr.Error())
	}
	if errors.Is(err, indicator.ErrInsufficientData) {
		return xhttp.NotFoundResponse(c, "not enough history to evaluate indicators")
	}
	h.logger.Error("analysis failed", xlogger.Error(err))
	return xhttp.BadGatewayResponse(c, "all data sources failed, try again later")
}

func parseRange(start, end string) (models.DateRange, error) {
	dr := models.DefaultDateRange(time.Now())
	if start != "" {
		t, ok := util.ParseCompactDate(start)
		if !ok {
			return models.DateRange{}, errors.New("start must be YYYYMMDD")
		}
		dr.Start = t
	}
	if end != "" {
		t, ok := util.ParseCompactDate(end)
		if !ok {
			return models.DateRange{}, errors.New("end must be YYYYMMDD")
		}
		dr.End = t
	}
	if err := dr.Validate(); err != nil {
		return models.DateRange{}, err
	}
	return dr, nil
}

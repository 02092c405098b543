package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"AlertEngine/internal/domain/models"
	"AlertEngine/internal/evaluator"
	"AlertEngine/internal/pricedata"
	xhttp "AlertEngine/pkg/http"
	xlogger "AlertEngine/pkg/logger"
)

// CycleRunner is the part of the scheduler the ops endpoints drive.
type CycleRunner interface {
	Trigger(ctx context.Context) bool
	Running() bool
	Enabled() bool
	LastSuccessfulExecution() (time.Time, bool)
}

type KindCatalog interface {
	Get() (*evaluator.CatalogResponse, error)
}

type QuoteSource interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}

type HealthResponse struct {
	Status              string     `json:"status"`
	Enabled             bool       `json:"enabled"`
	Running             bool       `json:"running"`
	LastSuccessfulCycle *time.Time `json:"lastSuccessfulCycle"`
}

type QuotesRequest struct {
	Symbols string `query:"symbols" validate:"required,max=512"`
}

// OpsHandler serves health, the alert kind catalog, quotes and manual cycle triggers.
type OpsHandler struct {
	logger    *xlogger.Logger
	scheduler CycleRunner
	catalog   KindCatalog
	quotes    QuoteSource
}

func NewOpsHandler(logger *xlogger.Logger, scheduler CycleRunner, catalog KindCatalog, quotes QuoteSource) *OpsHandler {
	return &OpsHandler{logger: logger, scheduler: scheduler, catalog: catalog, quotes: quotes}
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.GET("/alert-kinds", h.AlertKinds)
	g.GET("/quotes", h.Quotes)
	g.POST("/cycles", h.TriggerCycle)
}

func (h *OpsHandler) Health(c echo.Context) error {
	res := HealthResponse{
		Status:  "UP",
		Enabled: h.scheduler.Enabled(),
		Running: h.scheduler.Running(),
	}
	if t, ok := h.scheduler.LastSuccessfulExecution(); ok {
		res.LastSuccessfulCycle = &t
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *OpsHandler) AlertKinds(c echo.Context) error {
	res, err := h.catalog.Get()
	if err != nil {
		h.logger.Error("alert-kinds-failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("catalog unavailable").WithError(err))
	}
	etag := `"` + res.Version + `"`
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	c.Response().Header().Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *OpsHandler) Quotes(c echo.Context) error {
	req := &QuotesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbols := splitSymbols(req.Symbols)
	if len(symbols) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("no symbols given"))
	}

	res, err := h.quotes.GetQuotes(c.Request().Context(), symbols)
	if err != nil {
		h.logger.Warn("quotes-failed", xlogger.Strings("symbols", symbols), xlogger.Error(err))
		if pricedata.IsKind(err, pricedata.KindBadRequest) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("price service unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *OpsHandler) TriggerCycle(c echo.Context) error {
	// The cycle outlives the request.
	ctx := context.WithoutCancel(c.Request().Context())
	if !h.scheduler.Trigger(ctx) {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("a cycle is already running"))
	}
	h.logger.Info("alert-eval-cycle-triggered", xlogger.String("remote", c.RealIP()))
	return xhttp.AcceptedResponse(c, map[string]string{"status": "started"})
}

func splitSymbols(s string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 4)
	for _, p := range strings.Split(s, ",") {
		sym := strings.ToUpper(strings.TrimSpace(p))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}

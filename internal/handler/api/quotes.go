// Package api exposes the REST quote endpoints.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/internal/usecase"
	xhttp "QuotePulse/pkg/http"
	applogger "QuotePulse/pkg/logger"
)

// QuoteHandler serves on-demand quote reads, batch reads and
// instrument search.
type QuoteHandler struct {
	quotes *usecase.QuoteService
	cache  drepo.QuoteCache
	log    *applogger.Logger
}

var _ xhttp.Handler = (*QuoteHandler)(nil)

// NewQuoteHandler creates the REST handler.
func NewQuoteHandler(quotes *usecase.QuoteService, cache drepo.QuoteCache, log *applogger.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, cache: cache, log: log}
}

// RegisterRoutes registers the public API routes.
func (h *QuoteHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/quote/:symbol", h.GetQuote)
	g.GET("/quotes", h.GetQuotes)
	g.GET("/search", h.Search)
}

// Health reports liveness.
func (h *QuoteHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetQuote serves one symbol, cache-first. A cache hit between refresh
// ticks skips the provider chain entirely.
func (h *QuoteHandler) GetQuote(c echo.Context) error {
	req := new(models.QuoteRequest)
	if payload := xhttp.ReadAndValidateRequest(c, req); payload != nil {
		return xhttp.BadRequestResponse(c, payload)
	}

	symbol, err := models.NormalizeSymbol(req.Symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	ctx := c.Request().Context()
	if cached, err := h.cache.Get(ctx, symbol); err == nil {
		return xhttp.SuccessResponse(c, cached)
	} else if !errors.Is(err, drepo.ErrCacheMiss) {
		h.log.Warn("quote cache read failed", applogger.String("symbol", symbol), applogger.Error(err))
	}

	q := h.quotes.GetQuote(ctx, symbol)
	if err := h.cache.Set(ctx, q); err != nil {
		h.log.Warn("quote cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	return xhttp.SuccessResponse(c, q)
}

// GetQuotes serves a comma-separated batch of symbols, preserving the
// request order in the response.
func (h *QuoteHandler) GetQuotes(c echo.Context) error {
	req := new(models.QuotesRequest)
	if payload := xhttp.ReadAndValidateRequest(c, req); payload != nil {
		return xhttp.BadRequestResponse(c, payload)
	}

	var symbols []string
	for _, raw := range strings.Split(req.Symbols, ",") {
		sym, err := models.NormalizeSymbol(raw)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		symbols = append(symbols, sym)
	}

	quotes, err := h.quotes.GetQuotes(c.Request().Context(), symbols)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.ListResponse(c, quotes, int64(len(quotes)))
}

// Search serves advisory instrument search. Provider failures degrade
// to an empty list rather than an error.
func (h *QuoteHandler) Search(c echo.Context) error {
	req := new(models.SearchRequest)
	if payload := xhttp.ReadAndValidateRequest(c, req); payload != nil {
		return xhttp.BadRequestResponse(c, payload)
	}

	results := h.quotes.Search(c.Request().Context(), req.Query, req.Limit)
	if results == nil {
		results = []models.SearchResult{}
	}
	return xhttp.ListResponse(c, results, int64(len(results)))
}

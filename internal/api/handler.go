package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"hotel-rate-intel/internal/domain"
)

const defaultWeeklyLimit = 10

// RateService is the query surface exposed over HTTP.
type RateService interface {
	GetPerfectDayOpportunities(ctx context.Context) []domain.Opportunity
	GetWeeklySuggestions(limit int) []domain.Opportunity
	GetCitySeasonalAnalysis(city string) []domain.SeasonalRateEntry
	GetCuratedHotels() []domain.Hotel
	GetBookingWindow(ctx context.Context, hotelID string) (*domain.BookingWindow, bool)
	ForceUpdate(ctx context.Context) error
	LastRefresh() (time.Time, bool)
}

// Handler serves the rate intelligence routes.
type Handler struct {
	svc    RateService
	logger zerolog.Logger
}

// NewHandler constructs the route handler.
func NewHandler(svc RateService, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type weeklyRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=50"`
}

type cityRequest struct {
	City string `param:"city" validate:"required"`
}

type hotelRequest struct {
	ID string `param:"id" validate:"required"`
}

// RegisterRoutes mounts the /api group on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/opportunities", h.Opportunities)
	g.GET("/weekly", h.Weekly)
	g.GET("/cities/:city/seasonal", h.CitySeasonal)
	g.GET("/hotels", h.Hotels)
	g.GET("/hotels/:id/window", h.Window)
	g.POST("/refresh", h.Refresh)
}

// Opportunities returns the cached perfect-day opportunities.
func (h *Handler) Opportunities(c echo.Context) error {
	opps := h.svc.GetPerfectDayOpportunities(c.Request().Context())
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return success(c, opps)
}

// Weekly returns seasonal suggestions for the next 30 days.
func (h *Handler) Weekly(c echo.Context) error {
	req := &weeklyRequest{}
	if errs := bindAndValidate(c, req); errs != nil {
		return badRequest(c, errs)
	}
	if req.Limit == 0 {
		req.Limit = defaultWeeklyLimit
	}
	return success(c, h.svc.GetWeeklySuggestions(req.Limit))
}

// CitySeasonal returns the monthly seasonal entries of a city.
func (h *Handler) CitySeasonal(c echo.Context) error {
	req := &cityRequest{}
	if errs := bindAndValidate(c, req); errs != nil {
		return badRequest(c, errs)
	}
	return success(c, h.svc.GetCitySeasonalAnalysis(req.City))
}

// Hotels lists the curated hotels.
func (h *Handler) Hotels(c echo.Context) error {
	return success(c, h.svc.GetCuratedHotels())
}

// Window returns the booking window of one hotel.
func (h *Handler) Window(c echo.Context) error {
	req := &hotelRequest{}
	if errs := bindAndValidate(c, req); errs != nil {
		return badRequest(c, errs)
	}
	w, ok := h.svc.GetBookingWindow(c.Request().Context(), req.ID)
	if !ok {
		return notFound(c, "no observations for hotel "+req.ID)
	}
	return success(c, w)
}

// Refresh forces a recomputation.
func (h *Handler) Refresh(c echo.Context) error {
	if err := h.svc.ForceUpdate(c.Request().Context()); err != nil {
		h.logger.Warn().Err(err).Msg("forced refresh aborted")
		return dataResponse(c, http.StatusServiceUnavailable, err.Error())
	}
	at, _ := h.svc.LastRefresh()
	return success(c, map[string]any{"refreshedAt": at.UTC()})
}

// Health reports liveness and the age of the cached results.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{"ok": true}
	if at, ok := h.svc.LastRefresh(); ok {
		body["lastRefresh"] = at.UTC()
	}
	return success(c, body)
}

// Package echo exposes the integrations over HTTP, mapping the error
// taxonomy onto status codes at this boundary only.
package echo

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
	"github.com/monthwrap/integrations/services"
)

// IntegrationsAPI struct to hold dependencies.
type IntegrationsAPI struct {
	tokens   *services.TokenLifecycleService
	calendar *services.CalendarService
	wrap     *services.WrapService
	strava   services.StravaSource
	spotify  services.SpotifySource
}

// NewIntegrationsAPI initializes the integrations API. The strava and
// spotify sources may be nil; their data routes then answer 501.
func NewIntegrationsAPI(
	tokens *services.TokenLifecycleService,
	calendar *services.CalendarService,
	wrap *services.WrapService,
	strava services.StravaSource,
	spotify services.SpotifySource,
) *IntegrationsAPI {
	return &IntegrationsAPI{
		tokens:   tokens,
		calendar: calendar,
		wrap:     wrap,
		strava:   strava,
		spotify:  spotify,
	}
}

// RegisterRoutes registers the integration routes.
func (a *IntegrationsAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/:provider/token", a.ExchangeTokenHandler)
	e.POST("/api/:provider/refresh", a.RefreshHandler)
	e.GET("/api/:provider/status", a.StatusHandler)
	e.POST("/api/:provider/disconnect", a.DisconnectHandler)

	e.GET("/api/google/events", a.EventsHandler)
	e.GET("/api/google/preferences", a.GetPreferencesHandler)
	e.POST("/api/google/preferences", a.SetPreferencesHandler)

	e.GET("/api/strava/activities", a.ActivitiesHandler)
	e.GET("/api/spotify/top", a.SpotifyTopHandler)
	e.GET("/api/spotify/recent", a.SpotifyRecentHandler)

	e.GET("/api/wrap/this-month", a.WrapHandler)
}

// TokenExchangeRequest is the body of the code-exchange endpoint.
type TokenExchangeRequest struct {
	UserID      string `json:"user_id"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// DisconnectRequest is the body of the disconnect endpoint.
type DisconnectRequest struct {
	UserID string `json:"user_id"`
}

func parseProvider(c echo.Context) (domain.Provider, error) {
	provider, ok := domain.ParseProvider(c.Param("provider"))
	if !ok {
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown provider")
	}
	return provider, nil
}

// ExchangeTokenHandler trades an authorization code for tokens and
// stores the resulting record.
func (a *IntegrationsAPI) ExchangeTokenHandler(c echo.Context) error {
	provider, err := parseProvider(c)
	if err != nil {
		return err
	}

	var req TokenExchangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and code are required")
	}

	created, err := a.tokens.ExchangeAuthorizationCode(c.Request().Context(), req.UserID, provider, req.Code, req.RedirectURI)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"connected": true,
		"created":   created,
		"provider":  provider.String(),
	})
}

// RefreshHandler forces a refresh regardless of the stored expiry.
func (a *IntegrationsAPI) RefreshHandler(c echo.Context) error {
	provider, err := parseProvider(c)
	if err != nil {
		return err
	}
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	record, err := a.tokens.ForceRefresh(c.Request().Context(), userID, provider)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"refreshed":  true,
		"provider":   provider.String(),
		"expires_at": record.ExpiresAt,
	})
}

// StatusHandler reports connection state without token material.
func (a *IntegrationsAPI) StatusHandler(c echo.Context) error {
	provider, err := parseProvider(c)
	if err != nil {
		return err
	}
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	status, err := a.tokens.Status(c.Request().Context(), userID, provider)
	if err != nil {
		return a.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// DisconnectHandler removes the stored record. Idempotent.
func (a *IntegrationsAPI) DisconnectHandler(c echo.Context) error {
	provider, err := parseProvider(c)
	if err != nil {
		return err
	}

	var req DisconnectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	removed, err := a.tokens.Disconnect(c.Request().Context(), req.UserID, provider)
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"disconnected": true,
		"removed":      removed,
		"provider":     provider.String(),
	})
}

// EventsHandler lists sanitized calendar events.
func (a *IntegrationsAPI) EventsHandler(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	var req services.EventsRequest
	if v := c.QueryParam("time_min"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "time_min must be RFC 3339")
		}
		req.TimeMin = t
	}
	if v := c.QueryParam("time_max"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "time_max must be RFC 3339")
		}
		req.TimeMax = t
	}
	if v := c.QueryParam("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "max_results must be an integer")
		}
		req.MaxResults = n
	}

	events, err := a.calendar.ListSanitizedEvents(c.Request().Context(), userID, req)
	if err != nil {
		return a.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

// GetPreferencesHandler returns the stored calendar settings.
func (a *IntegrationsAPI) GetPreferencesHandler(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	settings, err := a.calendar.GetPreferences(c.Request().Context(), userID)
	if err != nil {
		return a.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// PreferencesRequest is the body of the preferences update endpoint.
type PreferencesRequest struct {
	UserID   string                  `json:"user_id"`
	Settings domain.CalendarSettings `json:"settings"`
}

// SetPreferencesHandler persists calendar settings for a user.
func (a *IntegrationsAPI) SetPreferencesHandler(c echo.Context) error {
	var req PreferencesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	if err := a.calendar.SetPreferences(c.Request().Context(), req.UserID, req.Settings); err != nil {
		return a.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"saved": true})
}

// ActivitiesHandler lists raw Strava activities for the user.
func (a *IntegrationsAPI) ActivitiesHandler(c echo.Context) error {
	if a.strava == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "strava data is not configured")
	}
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	accessToken, _, err := a.tokens.EnsureAccessToken(c.Request().Context(), userID, domain.ProviderStrava)
	if err != nil {
		return a.errorResponse(c, err)
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 30)
	activities, err := a.strava.Activities(c.Request().Context(), accessToken, page, perPage)
	if err != nil {
		return a.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"activities": activities})
}

// SpotifyTopHandler returns the user's top tracks or artists.
func (a *IntegrationsAPI) SpotifyTopHandler(c echo.Context) error {
	if a.spotify == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "spotify data is not configured")
	}
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	accessToken, _, err := a.tokens.EnsureAccessToken(c.Request().Context(), userID, domain.ProviderSpotify)
	if err != nil {
		return a.errorResponse(c, err)
	}

	limit := queryInt(c, "limit", 5)
	timeRange := c.QueryParam("time_range")

	switch c.QueryParam("type") {
	case "artists":
		artists, err := a.spotify.TopArtists(c.Request().Context(), accessToken, limit, timeRange)
		if err != nil {
			return a.errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"artists": artists})
	case "", "tracks":
		tracks, err := a.spotify.TopTracks(c.Request().Context(), accessToken, limit, timeRange)
		if err != nil {
			return a.errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"tracks": tracks})
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "type must be tracks or artists")
	}
}

// SpotifyRecentHandler returns recently played tracks.
func (a *IntegrationsAPI) SpotifyRecentHandler(c echo.Context) error {
	if a.spotify == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "spotify data is not configured")
	}
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	accessToken, _, err := a.tokens.EnsureAccessToken(c.Request().Context(), userID, domain.ProviderSpotify)
	if err != nil {
		return a.errorResponse(c, err)
	}

	limit := queryInt(c, "limit", 20)
	items, err := a.spotify.RecentlyPlayed(c.Request().Context(), accessToken, limit)
	if err != nil {
		return a.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func queryInt(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// WrapHandler returns the month's aggregated wrap.
func (a *IntegrationsAPI) WrapHandler(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	wrap, err := a.wrap.ThisMonth(c.Request().Context(), userID)
	if err != nil {
		return a.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, wrap)
}

// errorResponse maps the error taxonomy to HTTP statuses. Upstream
// rejections pass the provider's own status through so the frontend
// can distinguish a revoked grant from our own failures.
func (a *IntegrationsAPI) errorResponse(c echo.Context, err error) error {
	ie, ok := ierrors.AsIntegrationError(err)
	if !ok {
		log.Error().Err(err).Msg("Unclassified error reached API boundary")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	status := http.StatusInternalServerError
	switch ie.Code {
	case ierrors.CodeConfiguration, ierrors.CodeStore:
		status = http.StatusInternalServerError
	case ierrors.CodeNotConnected:
		status = http.StatusNotFound
	case ierrors.CodeReauthorizationRequired, ierrors.CodeRefreshFailed:
		status = http.StatusBadRequest
	case ierrors.CodeUpstreamAuth:
		if ie.StatusCode > 0 {
			status = ie.StatusCode
		} else {
			status = http.StatusBadGateway
		}
	case ierrors.CodeNetwork:
		status = http.StatusBadGateway
	}

	log.Warn().
		Str("code", string(ie.Code)).
		Str("provider", ie.Provider).
		Str("stage", ie.Stage).
		Int("status", status).
		Msg("Request failed")

	body := map[string]any{
		"error":    string(ie.Code),
		"provider": ie.Provider,
		"detail":   ie.Description,
	}
	if ie.Code == ierrors.CodeUpstreamAuth && ie.Body != "" {
		body["upstream_body"] = ie.Body
	}
	return c.JSON(status, body)
}

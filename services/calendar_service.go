package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
	"github.com/monthwrap/integrations/internal/calendar"
	"github.com/monthwrap/integrations/internal/metrics"
	"github.com/monthwrap/integrations/internal/providers"
)

// CalendarSource fetches raw events from the calendar provider.
type CalendarSource interface {
	Events(ctx context.Context, accessToken string, q providers.EventsQuery) (*providers.EventsPage, error)
}

const (
	defaultEventWindow = 7 * 24 * time.Hour
	defaultMaxResults  = 10
	maxAllowedResults  = 50
)

// CalendarService serves sanitized calendar events and the per-user
// preference policy that drives sanitization.
type CalendarService struct {
	tokens *TokenLifecycleService
	source CalendarSource
	store  domain.IntegrationRepository
	now    func() time.Time
}

func NewCalendarService(tokens *TokenLifecycleService, source CalendarSource, store domain.IntegrationRepository) *CalendarService {
	return &CalendarService{
		tokens: tokens,
		source: source,
		store:  store,
		now:    time.Now,
	}
}

// GetPreferences returns the stored calendar settings, or defaults
// when the user never saved any. An unconnected user still gets
// defaults so the settings page can render before connecting.
func (s *CalendarService) GetPreferences(ctx context.Context, userID string) (*domain.CalendarSettings, error) {
	record, err := s.store.Get(ctx, userID, domain.ProviderGoogleCalendar)
	if err != nil {
		return nil, err
	}
	if record == nil || record.CalendarSettings == nil {
		settings := domain.DefaultCalendarSettings()
		return &settings, nil
	}
	settings := *record.CalendarSettings
	return &settings, nil
}

// SetPreferences persists the settings onto the user's Google record.
// The user must be connected first, or there is nothing to attach the
// settings to.
func (s *CalendarService) SetPreferences(ctx context.Context, userID string, settings domain.CalendarSettings) error {
	record, err := s.store.Get(ctx, userID, domain.ProviderGoogleCalendar)
	if err != nil {
		return err
	}
	if record == nil {
		return ierrors.NewNotConnected(domain.ProviderGoogleCalendar.String())
	}

	update := &domain.IntegrationRecord{
		UserID:           userID,
		Provider:         domain.ProviderGoogleCalendar,
		CalendarSettings: &settings,
		Meta:             map[string]any{"calendar_settings": settings},
		UpdatedAt:        s.now().UTC(),
	}
	if err := s.store.Upsert(ctx, update); err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Msg("Calendar preferences updated")
	return nil
}

// EventsRequest bounds a sanitized-events listing. Zero values fall
// back to a now-to-plus-seven-days window with ten results.
type EventsRequest struct {
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int
}

// ListSanitizedEvents refreshes the Google token if needed, fetches
// upcoming events and runs them through the sanitization pipeline.
func (s *CalendarService) ListSanitizedEvents(ctx context.Context, userID string, req EventsRequest) ([]domain.EventDescriptor, error) {
	accessToken, _, err := s.tokens.EnsureAccessToken(ctx, userID, domain.ProviderGoogleCalendar)
	if err != nil {
		return nil, err
	}

	settings, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	timeMin := req.TimeMin
	if timeMin.IsZero() {
		timeMin = s.now().UTC()
	}
	timeMax := req.TimeMax
	if timeMax.IsZero() {
		timeMax = timeMin.Add(defaultEventWindow)
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > maxAllowedResults {
		maxResults = maxAllowedResults
	}

	page, err := s.source.Events(ctx, accessToken, providers.EventsQuery{
		TimeMin:    timeMin.Format(time.RFC3339),
		TimeMax:    timeMax.Format(time.RFC3339),
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, err
	}

	descriptors := calendar.Sanitize(page.Items, *settings)
	metrics.EventsSanitizedTotal.Add(float64(len(descriptors)))
	return descriptors, nil
}

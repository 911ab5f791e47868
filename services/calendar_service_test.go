package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
	"github.com/monthwrap/integrations/internal/expiry"
	"github.com/monthwrap/integrations/internal/providers"
	"github.com/monthwrap/integrations/internal/storetest"
)

type fakeCalendarSource struct {
	lastQuery providers.EventsQuery
	lastToken string
	events    []domain.CalendarEvent
	err       error
}

func (f *fakeCalendarSource) Events(_ context.Context, accessToken string, q providers.EventsQuery) (*providers.EventsPage, error) {
	f.lastToken = accessToken
	f.lastQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return &providers.EventsPage{Items: f.events}, nil
}

func newCalendarFixture(t *testing.T) (*CalendarService, *storetest.MemoryStore, *fakeCalendarSource) {
	t.Helper()
	store := storetest.NewMemoryStore()
	adapter := &fakeAdapter{name: domain.ProviderGoogleCalendar}
	tokens := NewTokenLifecycleService(store, map[domain.Provider]providers.Adapter{
		domain.ProviderGoogleCalendar: adapter,
	})
	source := &fakeCalendarSource{}
	return NewCalendarService(tokens, source, store), store, source
}

func connectGoogle(t *testing.T, store *storetest.MemoryStore) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), &domain.IntegrationRecord{
		UserID:       "u1",
		Provider:     domain.ProviderGoogleCalendar,
		AccessToken:  "g-at",
		RefreshToken: "g-rt",
		ExpiresAt:    expiry.Format(time.Now().Add(time.Hour).Unix()),
	}))
}

func TestGetPreferences_DefaultsWhenUnset(t *testing.T) {
	svc, store, _ := newCalendarFixture(t)

	// Unconnected user still gets defaults.
	settings, err := svc.GetPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCalendarSettings(), *settings)

	// Connected but never saved: still defaults.
	connectGoogle(t, store)
	settings, err = svc.GetPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCalendarSettings(), *settings)
}

func TestSetPreferences(t *testing.T) {
	svc, store, _ := newCalendarFixture(t)

	custom := domain.CalendarSettings{
		OnlyPersonalCalendars: true,
		WorkCalendars:         true,
		IncludeAllDayEvents:   false,
		IncludeLocations:      true,
	}

	err := svc.SetPreferences(context.Background(), "u1", custom)
	assert.True(t, ierrors.HasCode(err, ierrors.CodeNotConnected))

	connectGoogle(t, store)
	require.NoError(t, svc.SetPreferences(context.Background(), "u1", custom))

	settings, err := svc.GetPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, custom, *settings)

	// Saving preferences must not clobber the stored tokens.
	record, err := store.Get(context.Background(), "u1", domain.ProviderGoogleCalendar)
	require.NoError(t, err)
	assert.Equal(t, "g-at", record.AccessToken)
	assert.Equal(t, "g-rt", record.RefreshToken)
}

func TestListSanitizedEvents_DefaultBounds(t *testing.T) {
	svc, store, source := newCalendarFixture(t)
	connectGoogle(t, store)
	source.events = []domain.CalendarEvent{
		{
			ID:      "e1",
			Summary: "Dinner with Sam",
			Start:   domain.EventTime{DateTime: "2026-08-30T19:00:00Z"},
			End:     domain.EventTime{DateTime: "2026-08-30T20:00:00Z"},
		},
	}

	before := time.Now().UTC()
	out, err := svc.ListSanitizedEvents(context.Background(), "u1", EventsRequest{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].ID)
	assert.Equal(t, "g-at", source.lastToken)
	assert.Equal(t, 10, source.lastQuery.MaxResults)

	timeMin, err := time.Parse(time.RFC3339, source.lastQuery.TimeMin)
	require.NoError(t, err)
	timeMax, err := time.Parse(time.RFC3339, source.lastQuery.TimeMax)
	require.NoError(t, err)
	assert.WithinDuration(t, before, timeMin, 5*time.Second)
	assert.Equal(t, 7*24*time.Hour, timeMax.Sub(timeMin))
}

func TestListSanitizedEvents_ClampsMaxResults(t *testing.T) {
	svc, store, source := newCalendarFixture(t)
	connectGoogle(t, store)

	_, err := svc.ListSanitizedEvents(context.Background(), "u1", EventsRequest{MaxResults: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, source.lastQuery.MaxResults)
}

func TestListSanitizedEvents_NotConnected(t *testing.T) {
	svc, _, _ := newCalendarFixture(t)

	_, err := svc.ListSanitizedEvents(context.Background(), "u1", EventsRequest{})
	assert.True(t, ierrors.HasCode(err, ierrors.CodeNotConnected))
}

func TestListSanitizedEvents_AppliesStoredPreferences(t *testing.T) {
	svc, store, source := newCalendarFixture(t)
	connectGoogle(t, store)
	require.NoError(t, svc.SetPreferences(context.Background(), "u1", domain.CalendarSettings{
		OnlyPersonalCalendars: true,
		IncludeAllDayEvents:   false,
	}))

	source.events = []domain.CalendarEvent{
		{ID: "allday", Summary: "Holiday", Start: domain.EventTime{Date: "2026-08-30"}, End: domain.EventTime{Date: "2026-08-31"}},
		{ID: "timed", Summary: "Lunch", Start: domain.EventTime{DateTime: "2026-08-30T12:00:00Z"}, End: domain.EventTime{DateTime: "2026-08-30T13:00:00Z"}},
	}

	out, err := svc.ListSanitizedEvents(context.Background(), "u1", EventsRequest{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "timed", out[0].ID)
}

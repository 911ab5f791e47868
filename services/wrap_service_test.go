package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monthwrap/integrations/cache"
	"github.com/monthwrap/integrations/domain"
	"github.com/monthwrap/integrations/internal/expiry"
	"github.com/monthwrap/integrations/internal/providers"
	"github.com/monthwrap/integrations/internal/storetest"
)

type fakeStravaSource struct {
	activities []providers.Activity
	calls      int
}

func (f *fakeStravaSource) Activities(_ context.Context, _ string, _, _ int) ([]providers.Activity, error) {
	f.calls++
	return f.activities, nil
}

type fakeSpotifySource struct {
	tracks  []providers.Track
	artists []providers.Artist
	played  []providers.PlayedItem
}

func (f *fakeSpotifySource) TopTracks(_ context.Context, _ string, _ int, _ string) ([]providers.Track, error) {
	return f.tracks, nil
}

func (f *fakeSpotifySource) TopArtists(_ context.Context, _ string, _ int, _ string) ([]providers.Artist, error) {
	return f.artists, nil
}

func (f *fakeSpotifySource) RecentlyPlayed(_ context.Context, _ string, _ int) ([]providers.PlayedItem, error) {
	return f.played, nil
}

func connectAll(t *testing.T, store *storetest.MemoryStore) {
	t.Helper()
	for _, p := range []domain.Provider{domain.ProviderStrava, domain.ProviderSpotify, domain.ProviderGoogleCalendar} {
		require.NoError(t, store.Upsert(context.Background(), &domain.IntegrationRecord{
			UserID:       "u1",
			Provider:     p,
			AccessToken:  "at-" + p.String(),
			RefreshToken: "rt-" + p.String(),
			ExpiresAt:    expiry.Format(time.Now().Add(time.Hour).Unix()),
		}))
	}
}

func newWrapFixture(t *testing.T) (*WrapService, *storetest.MemoryStore, *fakeStravaSource, *fakeSpotifySource, *fakeCalendarSource) {
	t.Helper()
	store := storetest.NewMemoryStore()
	tokens := NewTokenLifecycleService(store, map[domain.Provider]providers.Adapter{
		domain.ProviderStrava:         &fakeAdapter{name: domain.ProviderStrava},
		domain.ProviderSpotify:        &fakeAdapter{name: domain.ProviderSpotify},
		domain.ProviderGoogleCalendar: &fakeAdapter{name: domain.ProviderGoogleCalendar},
	})
	strava := &fakeStravaSource{}
	spotify := &fakeSpotifySource{}
	calSource := &fakeCalendarSource{}
	calendar := NewCalendarService(tokens, calSource, store)
	summaries := cache.NewMemorySummaryCache(time.Minute)
	t.Cleanup(summaries.Stop)

	svc := NewWrapService(tokens, strava, spotify, calendar, summaries, nil)
	return svc, store, strava, spotify, calSource
}

func monthStamp(day int, hour int) string {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), day, hour, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func TestThisMonth_AggregatesAllProviders(t *testing.T) {
	svc, store, strava, spotify, calSource := newWrapFixture(t)
	connectAll(t, store)

	strava.activities = []providers.Activity{
		{ID: 1, Distance: 10000, MovingTime: 3600, StartDate: monthStamp(2, 8)},
		{ID: 2, Distance: 5000, MovingTime: 1800, StartDate: monthStamp(3, 8)},
		// Outside the month window, must not count.
		{ID: 3, Distance: 99000, MovingTime: 9000, StartDate: "2020-01-01T08:00:00Z"},
	}
	spotify.tracks = []providers.Track{
		{Name: "Midnight Waves", Artists: []providers.TrackArtist{{Name: "Nova"}}},
	}
	spotify.artists = []providers.Artist{
		{Name: "Nova", Genres: []string{"dream pop", "indie electronica"}},
		{Name: "Else", Genres: []string{"dream pop", "nu jazz"}},
	}
	spotify.played = []providers.PlayedItem{
		{Track: providers.Track{DurationMS: 180000}},
		{Track: providers.Track{DurationMS: 240000}},
	}
	calSource.events = []domain.CalendarEvent{
		{ID: "e1", Summary: "Dinner with Sam", Start: domain.EventTime{DateTime: monthStamp(5, 19)}, End: domain.EventTime{DateTime: monthStamp(5, 20)}},
	}

	wrap, err := svc.ThisMonth(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, time.Now().UTC().Format("January 2006"), wrap.MonthLabel)
	assert.Equal(t, 2, wrap.Strava.TotalActivities)
	assert.InDelta(t, 15.0, wrap.Strava.TotalDistanceKM, 0.01)
	assert.InDelta(t, 1.5, wrap.Strava.MovingTimeHours, 0.01)
	assert.Equal(t, "Midnight Waves — Nova", wrap.Music.TopTrack)
	assert.Equal(t, []string{"dream pop", "indie electronica", "nu jazz"}, wrap.Music.TopGenres)
	assert.Equal(t, 7, wrap.Music.TotalMinutesListened)
	require.Len(t, wrap.Highlights, 1)
	assert.Contains(t, wrap.Highlights[0].Bullet, "Dinner with Sam")
	assert.NotEmpty(t, wrap.Summary)
	assert.Contains(t, wrap.Summary, wrap.MonthLabel)
}

func TestThisMonth_DisconnectedProvidersAreBestEffort(t *testing.T) {
	svc, store, _, spotify, _ := newWrapFixture(t)
	// Only Spotify connected.
	require.NoError(t, store.Upsert(context.Background(), &domain.IntegrationRecord{
		UserID:       "u1",
		Provider:     domain.ProviderSpotify,
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    expiry.Format(time.Now().Add(time.Hour).Unix()),
	}))
	spotify.tracks = []providers.Track{{Name: "Solo"}}

	wrap, err := svc.ThisMonth(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, wrap.Strava.TotalActivities)
	assert.Empty(t, wrap.Highlights)
	assert.Equal(t, "Solo", wrap.Music.TopTrack)
	assert.NotEmpty(t, wrap.Summary)
}

func TestThisMonth_CachesPerMonth(t *testing.T) {
	svc, store, strava, _, _ := newWrapFixture(t)
	connectAll(t, store)
	strava.activities = []providers.Activity{
		{ID: 1, Distance: 10000, MovingTime: 3600, StartDate: monthStamp(2, 8)},
	}

	first, err := svc.ThisMonth(context.Background(), "u1")
	require.NoError(t, err)
	second, err := svc.ThisMonth(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, strava.calls)
}

type staticSummarizer struct{ text string }

func (s staticSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	return s.text, nil
}

func TestThisMonth_UsesSummarizerWhenPresent(t *testing.T) {
	store := storetest.NewMemoryStore()
	tokens := NewTokenLifecycleService(store, nil)
	svc := NewWrapService(tokens, nil, nil, nil, nil, staticSummarizer{text: "A lovely month. #calm #steady #bright"})

	wrap, err := svc.ThisMonth(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "A lovely month. #calm #steady #bright", wrap.Summary)
}

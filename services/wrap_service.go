package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/monthwrap/integrations/cache"
	"github.com/monthwrap/integrations/domain"
	"github.com/monthwrap/integrations/internal/providers"
)

// StravaSource fetches a user's activities from Strava.
type StravaSource interface {
	Activities(ctx context.Context, accessToken string, page, perPage int) ([]providers.Activity, error)
}

// SpotifySource fetches listening stats from Spotify.
type SpotifySource interface {
	TopTracks(ctx context.Context, accessToken string, limit int, timeRange string) ([]providers.Track, error)
	TopArtists(ctx context.Context, accessToken string, limit int, timeRange string) ([]providers.Artist, error)
	RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]providers.PlayedItem, error)
}

// Summarizer renders the final prose summary from the assembled
// prompt. Optional; without one the deterministic fallback is used.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// WrapService assembles the "This Month Wrapped" payload: Strava
// totals, listening stats and calendar highlights for the current
// month. Each provider is best-effort; a disconnected or failing
// provider leaves its section zeroed rather than failing the wrap.
type WrapService struct {
	tokens     *TokenLifecycleService
	strava     StravaSource
	spotify    SpotifySource
	calendar   *CalendarService
	summaries  cache.SummaryCache
	summarizer Summarizer
	now        func() time.Time
}

func NewWrapService(
	tokens *TokenLifecycleService,
	strava StravaSource,
	spotify SpotifySource,
	calendar *CalendarService,
	summaries cache.SummaryCache,
	summarizer Summarizer,
) *WrapService {
	return &WrapService{
		tokens:     tokens,
		strava:     strava,
		spotify:    spotify,
		calendar:   calendar,
		summaries:  summaries,
		summarizer: summarizer,
		now:        time.Now,
	}
}

// ThisMonth returns the wrap for the current calendar month, cached
// per user and month.
func (s *WrapService) ThisMonth(ctx context.Context, userID string) (*domain.WrapSummary, error) {
	now := s.now().UTC()
	monthKey := now.Format("2006-01")

	if s.summaries != nil {
		if cached, ok := s.summaries.Get(ctx, userID, monthKey); ok {
			return cached, nil
		}
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	wrap := &domain.WrapSummary{
		MonthLabel: now.Format("January 2006"),
		Strava:     s.stravaSummary(ctx, userID, start, end),
		Music:      s.musicSummary(ctx, userID),
		Highlights: s.calendarHighlights(ctx, userID, start, end),
	}
	wrap.Summary = s.renderSummary(ctx, wrap)

	if s.summaries != nil {
		if err := s.summaries.Set(ctx, userID, monthKey, wrap); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to cache wrap summary")
		}
	}
	return wrap, nil
}

func (s *WrapService) stravaSummary(ctx context.Context, userID string, start, end time.Time) domain.StravaSummary {
	var summary domain.StravaSummary
	if s.strava == nil {
		return summary
	}

	accessToken, _, err := s.tokens.EnsureAccessToken(ctx, userID, domain.ProviderStrava)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Strava unavailable for wrap")
		return summary
	}

	activities, err := s.strava.Activities(ctx, accessToken, 1, 100)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to fetch Strava activities for wrap")
		return summary
	}

	for _, a := range activities {
		ts := a.StartTime()
		if ts.IsZero() || ts.Before(start) || !ts.Before(end) {
			continue
		}
		summary.TotalActivities++
		summary.TotalDistanceKM += a.Distance / 1000
		summary.MovingTimeHours += float64(a.MovingTime) / 3600
	}
	return summary
}

func (s *WrapService) musicSummary(ctx context.Context, userID string) domain.MusicSummary {
	var summary domain.MusicSummary
	if s.spotify == nil {
		return summary
	}

	accessToken, _, err := s.tokens.EnsureAccessToken(ctx, userID, domain.ProviderSpotify)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Spotify unavailable for wrap")
		return summary
	}

	if tracks, err := s.spotify.TopTracks(ctx, accessToken, 1, "short_term"); err == nil && len(tracks) > 0 {
		summary.TopTrack = trackLabel(tracks[0])
	}

	if artists, err := s.spotify.TopArtists(ctx, accessToken, 5, "short_term"); err == nil {
		summary.TopGenres = topGenres(artists, 3)
	}

	if played, err := s.spotify.RecentlyPlayed(ctx, accessToken, 50); err == nil {
		var ms int64
		for _, p := range played {
			ms += p.Track.DurationMS
		}
		summary.TotalMinutesListened = int(ms / 60000)
	}

	return summary
}

func (s *WrapService) calendarHighlights(ctx context.Context, userID string, start, end time.Time) []domain.EventDescriptor {
	if s.calendar == nil {
		return nil
	}

	descriptors, err := s.calendar.ListSanitizedEvents(ctx, userID, EventsRequest{
		TimeMin:    start,
		TimeMax:    end,
		MaxResults: maxAllowedResults,
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Calendar unavailable for wrap")
		return nil
	}

	if len(descriptors) > 3 {
		descriptors = descriptors[:3]
	}
	return descriptors
}

func trackLabel(t providers.Track) string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s — %s", t.Name, t.Artists[0].Name)
}

func topGenres(artists []providers.Artist, limit int) []string {
	seen := make(map[string]bool)
	genres := make([]string, 0, limit)
	for _, a := range artists {
		for _, g := range a.Genres {
			if seen[g] {
				continue
			}
			seen[g] = true
			genres = append(genres, g)
			if len(genres) == limit {
				return genres
			}
		}
	}
	return genres
}

func (s *WrapService) renderSummary(ctx context.Context, wrap *domain.WrapSummary) string {
	fallback := fallbackSummary(wrap)
	if s.summarizer == nil {
		return fallback
	}

	text, err := s.summarizer.Summarize(ctx, buildPrompt(wrap))
	if err != nil || strings.TrimSpace(text) == "" {
		log.Warn().Err(err).Msg("Summarizer failed, using fallback")
		return fallback
	}
	return strings.TrimSpace(text)
}

func buildPrompt(wrap *domain.WrapSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are summarizing this user's month in 3-5 warm, authentic sentences. Be positive but not cheesy.\n")
	fmt.Fprintf(&b, "End with 3 simple hashtags.\n")
	fmt.Fprintf(&b, "Month: %s\n", wrap.MonthLabel)
	fmt.Fprintf(&b, "Stats:\n")
	fmt.Fprintf(&b, "- Strava: %d activities, %.1f km, %.1f hours\n",
		wrap.Strava.TotalActivities, wrap.Strava.TotalDistanceKM, wrap.Strava.MovingTimeHours)
	genres := strings.Join(wrap.Music.TopGenres, ", ")
	if genres == "" {
		genres = "varied genres"
	}
	topTrack := wrap.Music.TopTrack
	if topTrack == "" {
		topTrack = "unknown"
	}
	fmt.Fprintf(&b, "- Music: top track %s, genres %s, %d minutes listened\n",
		topTrack, genres, wrap.Music.TotalMinutesListened)
	fmt.Fprintf(&b, "Calendar:\n")
	if len(wrap.Highlights) == 0 {
		fmt.Fprintf(&b, "- No calendar highlights captured.\n")
	}
	for _, h := range wrap.Highlights {
		fmt.Fprintf(&b, "- %s\n", h.Bullet)
	}
	return b.String()
}

func fallbackSummary(wrap *domain.WrapSummary) string {
	genres := strings.Join(wrap.Music.TopGenres, ", ")
	if genres == "" {
		genres = "a mix of sounds"
	}
	topTrack := wrap.Music.TopTrack
	if topTrack == "" {
		topTrack = "a rotating set of favorites"
	}
	highlight := "You kept time for the things that matter"
	if len(wrap.Highlights) > 0 {
		highlight = wrap.Highlights[0].Bullet
	}
	return fmt.Sprintf(
		"This month (%s) looked active with %d workouts covering about %.1f km. "+
			"You leaned into %s and your top track was %s. "+
			"%s and there are plenty of moments worth sharing. #goodvibes #momentum #keepgoing",
		wrap.MonthLabel, wrap.Strava.TotalActivities, wrap.Strava.TotalDistanceKM,
		genres, topTrack, highlight,
	)
}

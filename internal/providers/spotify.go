package providers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
)

var (
	SpotifyTokenURL   = "https://accounts.spotify.com/api/token"
	SpotifyAPIBaseURL = "https://api.spotify.com/v1"
)

// SpotifyAdapter talks to the Spotify accounts service. Spotify authenticates
// with an HTTP Basic header (base64 client_id:client_secret) and usually omits
// refresh_token from refresh replies.
type SpotifyAdapter struct {
	creds  Credentials
	client *http.Client
}

func NewSpotifyAdapter(creds Credentials, client *http.Client) *SpotifyAdapter {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &SpotifyAdapter{creds: creds, client: client}
}

func (a *SpotifyAdapter) Name() domain.Provider {
	return domain.ProviderSpotify
}

func (a *SpotifyAdapter) checkCreds() error {
	if !a.creds.complete() {
		return ierrors.NewConfiguration("spotify", "Spotify credentials not configured on server")
	}
	return nil
}

func (a *SpotifyAdapter) basicAuthHeader() http.Header {
	token := base64.StdEncoding.EncodeToString([]byte(a.creds.ClientID + ":" + a.creds.ClientSecret))
	h := http.Header{}
	h.Set("Authorization", "Basic "+token)
	return h
}

func (a *SpotifyAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.RawTokenResponse, error) {
	if err := a.checkCreds(); err != nil {
		return nil, err
	}
	form := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	if redirectURI == "" {
		redirectURI = a.creds.RedirectURI
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	return postTokenForm(ctx, a.client, domain.ProviderSpotify, "exchange", SpotifyTokenURL, form, a.basicAuthHeader())
}

func (a *SpotifyAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.RawTokenResponse, error) {
	if err := a.checkCreds(); err != nil {
		return nil, err
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return postTokenForm(ctx, a.client, domain.ProviderSpotify, "refresh", SpotifyTokenURL, form, a.basicAuthHeader())
}

// TrackArtist is the name of one contributing artist.
type TrackArtist struct {
	Name string `json:"name"`
}

// Track is the subset of a Spotify track used by the wrap aggregation.
type Track struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	DurationMS int64         `json:"duration_ms"`
	Artists    []TrackArtist `json:"artists"`
	Album      struct {
		Name string `json:"name"`
	} `json:"album"`
}

// Artist carries the genre tags the music summary is built from.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// PlayedItem is one entry of the recently-played feed.
type PlayedItem struct {
	PlayedAt string `json:"played_at"`
	Track    Track  `json:"track"`
}

type itemsPage[T any] struct {
	Items []T `json:"items"`
}

// TopTracks fetches the user's top tracks for the given time range
// (short_term, medium_term, long_term).
func (a *SpotifyAdapter) TopTracks(ctx context.Context, accessToken string, limit int, timeRange string) ([]Track, error) {
	var page itemsPage[Track]
	err := getJSON(ctx, a.client, domain.ProviderSpotify, "top_tracks",
		SpotifyAPIBaseURL+"/me/top/tracks", topParams(limit, timeRange), accessToken, &page)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// TopArtists fetches the user's top artists for the given time range.
func (a *SpotifyAdapter) TopArtists(ctx context.Context, accessToken string, limit int, timeRange string) ([]Artist, error) {
	var page itemsPage[Artist]
	err := getJSON(ctx, a.client, domain.ProviderSpotify, "top_artists",
		SpotifyAPIBaseURL+"/me/top/artists", topParams(limit, timeRange), accessToken, &page)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// RecentlyPlayed fetches the user's recently played tracks, newest first.
func (a *SpotifyAdapter) RecentlyPlayed(ctx context.Context, accessToken string, limit int) ([]PlayedItem, error) {
	if limit < 1 {
		limit = 10
	}
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	var page itemsPage[PlayedItem]
	err := getJSON(ctx, a.client, domain.ProviderSpotify, "recently_played",
		SpotifyAPIBaseURL+"/me/player/recently-played", params, accessToken, &page)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func topParams(limit int, timeRange string) url.Values {
	if limit < 1 {
		limit = 5
	}
	if timeRange == "" {
		timeRange = "short_term"
	}
	return url.Values{
		"limit":      {strconv.Itoa(limit)},
		"time_range": {timeRange},
	}
}

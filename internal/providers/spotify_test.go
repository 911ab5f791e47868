package providers_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	ierrors "github.com/monthwrap/integrations/errors"
	"github.com/monthwrap/integrations/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpotifyAdapter_ExchangeCode_BasicAuth(t *testing.T) {
	var gotAuth, gotGrant, gotRedirect string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotAuth = r.Header.Get("Authorization")
		gotGrant = r.PostFormValue("grant_type")
		gotRedirect = r.PostFormValue("redirect_uri")
		assert.Empty(t, r.PostFormValue("client_id"), "spotify credentials go in the Basic header, not the body")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "sp-at",
			"token_type": "Bearer",
			"expires_in": 3600,
			"refresh_token": "sp-rt",
			"scope": "user-top-read"
		}`))
	}))
	defer server.Close()

	original := providers.SpotifyTokenURL
	providers.SpotifyTokenURL = server.URL
	defer func() { providers.SpotifyTokenURL = original }()

	adapter := providers.NewSpotifyAdapter(providers.Credentials{
		ClientID:     "sp-id",
		ClientSecret: "sp-secret",
		RedirectURI:  "http://localhost:8080/settings",
	}, nil)

	tok, err := adapter.ExchangeCode(context.Background(), "the-code", "")
	require.NoError(t, err)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("sp-id:sp-secret"))
	assert.Equal(t, wantAuth, gotAuth)
	assert.Equal(t, "authorization_code", gotGrant)
	assert.Equal(t, "http://localhost:8080/settings", gotRedirect)
	assert.Equal(t, "sp-at", tok.AccessToken)
	assert.Equal(t, "sp-rt", tok.RefreshToken)
	assert.Equal(t, int64(3600), tok.ExpiresIn)
	assert.Zero(t, tok.ExpiresAt, "spotify reports relative expiry only")
}

func TestSpotifyAdapter_Refresh_OmitsRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		assert.Equal(t, "sp-rt", r.PostFormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		// Spotify commonly omits refresh_token on refresh.
		_, _ = w.Write([]byte(`{"access_token": "sp-at-2", "token_type": "Bearer", "expires_in": 3600}`))
	}))
	defer server.Close()

	original := providers.SpotifyTokenURL
	providers.SpotifyTokenURL = server.URL
	defer func() { providers.SpotifyTokenURL = original }()

	adapter := providers.NewSpotifyAdapter(providers.Credentials{ClientID: "sp-id", ClientSecret: "sp-secret"}, nil)
	tok, err := adapter.Refresh(context.Background(), "sp-rt")
	require.NoError(t, err)
	assert.Equal(t, "sp-at-2", tok.AccessToken)
	assert.Empty(t, tok.RefreshToken)
}

func TestSpotifyAdapter_Refresh_InvalidGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token revoked"}`))
	}))
	defer server.Close()

	original := providers.SpotifyTokenURL
	providers.SpotifyTokenURL = server.URL
	defer func() { providers.SpotifyTokenURL = original }()

	adapter := providers.NewSpotifyAdapter(providers.Credentials{ClientID: "sp-id", ClientSecret: "sp-secret"}, nil)
	_, err := adapter.Refresh(context.Background(), "revoked")
	require.Error(t, err)

	ie, ok := ierrors.AsIntegrationError(err)
	require.True(t, ok)
	assert.Equal(t, ierrors.CodeUpstreamAuth, ie.Code)
	assert.Contains(t, ie.Body, "invalid_grant")
}

func TestSpotifyAdapter_MissingCredentials(t *testing.T) {
	adapter := providers.NewSpotifyAdapter(providers.Credentials{ClientID: "only-id"}, nil)
	_, err := adapter.Refresh(context.Background(), "rt")
	assert.True(t, ierrors.HasCode(err, ierrors.CodeConfiguration))
}

func TestSpotifyAdapter_TopAndRecent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/me/top/tracks":
			assert.Equal(t, "short_term", r.URL.Query().Get("time_range"))
			_, _ = w.Write([]byte(`{"items":[{"id":"t1","name":"Midnight Waves","duration_ms":215000,"artists":[{"name":"Nova"}],"album":{"name":"Waves"}}]}`))
		case "/me/top/artists":
			_, _ = w.Write([]byte(`{"items":[{"id":"a1","name":"Nova","genres":["dream pop","indie electronica"]}]}`))
		case "/me/player/recently-played":
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"items":[{"played_at":"2026-08-20T21:04:00Z","track":{"id":"t1","name":"Midnight Waves","duration_ms":215000,"artists":[{"name":"Nova"}]}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	original := providers.SpotifyAPIBaseURL
	providers.SpotifyAPIBaseURL = server.URL
	defer func() { providers.SpotifyAPIBaseURL = original }()

	adapter := providers.NewSpotifyAdapter(providers.Credentials{ClientID: "sp-id", ClientSecret: "sp-secret"}, nil)

	tracks, err := adapter.TopTracks(context.Background(), "tok", 5, "")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Midnight Waves", tracks[0].Name)
	assert.Equal(t, "Nova", tracks[0].Artists[0].Name)

	artists, err := adapter.TopArtists(context.Background(), "tok", 5, "short_term")
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, []string{"dream pop", "indie electronica"}, artists[0].Genres)

	recent, err := adapter.RecentlyPlayed(context.Background(), "tok", 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2026-08-20T21:04:00Z", recent[0].PlayedAt)
}

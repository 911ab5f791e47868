package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
)

// Endpoint vars so tests can point the adapter at a local server.
var (
	StravaTokenURL      = "https://www.strava.com/oauth/token"
	StravaActivitiesURL = "https://www.strava.com/api/v3/athlete/activities"
)

// StravaAdapter talks to the Strava OAuth token endpoint. Strava authenticates
// with client_id/client_secret inline in the form body and returns an absolute
// expires_at plus an athlete object that is kept in the record's meta.
type StravaAdapter struct {
	creds  Credentials
	client *http.Client
}

func NewStravaAdapter(creds Credentials, client *http.Client) *StravaAdapter {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &StravaAdapter{creds: creds, client: client}
}

func (a *StravaAdapter) Name() domain.Provider {
	return domain.ProviderStrava
}

func (a *StravaAdapter) checkCreds() error {
	if !a.creds.complete() {
		return ierrors.NewConfiguration("strava", "Strava credentials not configured on server")
	}
	return nil
}

func (a *StravaAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.RawTokenResponse, error) {
	if err := a.checkCreds(); err != nil {
		return nil, err
	}
	form := url.Values{
		"client_id":     {a.creds.ClientID},
		"client_secret": {a.creds.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
	}
	if redirectURI == "" {
		redirectURI = a.creds.RedirectURI
	}
	// Strava returns invalid_grant when redirect_uri doesn't match the one
	// used during authorization, so only send it when we have one.
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	return postTokenForm(ctx, a.client, domain.ProviderStrava, "exchange", StravaTokenURL, form, nil)
}

func (a *StravaAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.RawTokenResponse, error) {
	if err := a.checkCreds(); err != nil {
		return nil, err
	}
	form := url.Values{
		"client_id":     {a.creds.ClientID},
		"client_secret": {a.creds.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return postTokenForm(ctx, a.client, domain.ProviderStrava, "refresh", StravaTokenURL, form, nil)
}

// Activity is the subset of a Strava activity the wrap aggregation needs.
type Activity struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Distance   float64 `json:"distance"`    // meters
	MovingTime int64   `json:"moving_time"` // seconds
	StartDate  string  `json:"start_date"`
}

// StartTime parses the activity's start instant; the zero time means Strava
// sent something unparsable.
func (a Activity) StartTime() time.Time {
	ts, err := time.Parse(time.RFC3339, a.StartDate)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Activities fetches a page of the athlete's activities with bearer auth.
func (a *StravaAdapter) Activities(ctx context.Context, accessToken string, page, perPage int) ([]Activity, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}
	params := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	var out []Activity
	if err := getJSON(ctx, a.client, domain.ProviderStrava, "activities", StravaActivitiesURL, params, accessToken, &out); err != nil {
		return nil, err
	}
	return out, nil
}

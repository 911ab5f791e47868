package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/monthwrap/integrations/domain"
	ierrors "github.com/monthwrap/integrations/errors"
)

var (
	GoogleTokenURL          = "https://oauth2.googleapis.com/token"
	GoogleCalendarEventsURL = "https://www.googleapis.com/calendar/v3/calendars/primary/events"
)

// GoogleAdapter talks to the Google OAuth token endpoint for the Calendar
// integration. Google takes client credentials and redirect_uri in the form
// body and omits refresh_token from refresh replies.
type GoogleAdapter struct {
	creds  Credentials
	client *http.Client
}

func NewGoogleAdapter(creds Credentials, client *http.Client) *GoogleAdapter {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &GoogleAdapter{creds: creds, client: client}
}

func (a *GoogleAdapter) Name() domain.Provider {
	return domain.ProviderGoogleCalendar
}

func (a *GoogleAdapter) checkCreds() error {
	if !a.creds.complete() {
		return ierrors.NewConfiguration("google_calendar", "Google credentials not configured on server")
	}
	return nil
}

func (a *GoogleAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.RawTokenResponse, error) {
	if err := a.checkCreds(); err != nil {
		return nil, err
	}
	if redirectURI == "" {
		redirectURI = a.creds.RedirectURI
	}
	form := url.Values{
		"code":          {code},
		"client_id":     {a.creds.ClientID},
		"client_secret": {a.creds.ClientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}
	return postTokenForm(ctx, a.client, domain.ProviderGoogleCalendar, "exchange", GoogleTokenURL, form, nil)
}

func (a *GoogleAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.RawTokenResponse, error) {
	if err := a.checkCreds(); err != nil {
		return nil, err
	}
	form := url.Values{
		"client_id":     {a.creds.ClientID},
		"client_secret": {a.creds.ClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	return postTokenForm(ctx, a.client, domain.ProviderGoogleCalendar, "refresh", GoogleTokenURL, form, nil)
}

// EventsQuery bounds a calendar listing. TimeMin/TimeMax are RFC3339 strings;
// MaxResults is clamped to Google's 1..2500 range by the endpoint itself.
type EventsQuery struct {
	TimeMin    string
	TimeMax    string
	MaxResults int
}

// EventsPage is the slice of raw items returned by the primary-calendar
// listing, already ordered by start time by the provider.
type EventsPage struct {
	Items []domain.CalendarEvent `json:"items"`
}

// Events lists the user's primary-calendar events expanded to single
// instances, ordered by start time.
func (a *GoogleAdapter) Events(ctx context.Context, accessToken string, q EventsQuery) (*EventsPage, error) {
	if q.MaxResults < 1 {
		q.MaxResults = 10
	}
	params := url.Values{
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"timeMin":      {q.TimeMin},
		"maxResults":   {strconv.Itoa(q.MaxResults)},
	}
	if q.TimeMax != "" {
		params.Set("timeMax", q.TimeMax)
	}
	var page EventsPage
	if err := getJSON(ctx, a.client, domain.ProviderGoogleCalendar, "events", GoogleCalendarEventsURL, params, accessToken, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

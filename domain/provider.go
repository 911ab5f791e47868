package domain

// Provider identifies one of the third-party OAuth services a user can connect.
type Provider string

const (
	ProviderStrava         Provider = "strava"
	ProviderSpotify        Provider = "spotify"
	ProviderGoogleCalendar Provider = "google_calendar"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderStrava, ProviderSpotify, ProviderGoogleCalendar}

// ParseProvider maps a wire string ("strava", "spotify", "google_calendar",
// plus the "google" alias used by the web client) to a Provider.
func ParseProvider(s string) (Provider, bool) {
	switch s {
	case "strava":
		return ProviderStrava, true
	case "spotify":
		return ProviderSpotify, true
	case "google_calendar", "google":
		return ProviderGoogleCalendar, true
	default:
		return "", false
	}
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderStrava, ProviderSpotify, ProviderGoogleCalendar:
		return true
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

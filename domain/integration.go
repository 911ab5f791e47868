package domain

import "time"

// IntegrationRecord is the persisted token/metadata row for one (user, provider)
// pair. ExpiresAt is stored as an ISO-8601 string; older rows may still carry an
// epoch number or digit string, so it is always normalized through the expiry
// package before comparison.
type IntegrationRecord struct {
	UserID       string   `bson:"user_id"                 json:"user_id"`
	Provider     Provider `bson:"provider"                json:"provider"`
	AccessToken  string   `bson:"access_token,omitempty"  json:"access_token,omitempty"`
	RefreshToken string   `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	ExpiresAt    string   `bson:"expires_at,omitempty"    json:"expires_at,omitempty"`
	Scope        string   `bson:"scope,omitempty"         json:"scope,omitempty"`

	// Meta keeps the provider-specific extras (athlete info, raw token payload).
	// It is merged key-by-key on every upsert, never replaced wholesale.
	Meta map[string]any `bson:"meta,omitempty" json:"meta,omitempty"`

	// CalendarSettings is only set for google_calendar records. A copy also
	// lives under Meta["calendar_settings"] so the snapshot survives schema
	// drift in either place.
	CalendarSettings *CalendarSettings `bson:"calendar_settings,omitempty" json:"calendar_settings,omitempty"`

	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Connected reports whether the record holds a usable access token. A record
// without one can exist after a failed partial write and counts as not
// connected.
func (r *IntegrationRecord) Connected() bool {
	return r != nil && r.AccessToken != ""
}

// Clone returns a deep copy, so in-memory stores never hand out aliased maps.
func (r *IntegrationRecord) Clone() *IntegrationRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Meta != nil {
		out.Meta = make(map[string]any, len(r.Meta))
		for k, v := range r.Meta {
			out.Meta[k] = v
		}
	}
	if r.CalendarSettings != nil {
		cs := *r.CalendarSettings
		out.CalendarSettings = &cs
	}
	return &out
}

// MergeRecords combines a freshly issued token payload with the previously
// stored record for the same (user, provider) key. Non-empty incoming fields
// win; fields the provider omitted on refresh (most commonly the refresh token)
// are carried over from the existing record so a refresh never invalidates
// future refreshes. Meta maps are merged key-by-key.
func MergeRecords(existing, incoming *IntegrationRecord) *IntegrationRecord {
	if existing == nil {
		return incoming.Clone()
	}
	if incoming == nil {
		return existing.Clone()
	}

	merged := incoming.Clone()
	if merged.AccessToken == "" {
		merged.AccessToken = existing.AccessToken
	}
	if merged.RefreshToken == "" {
		merged.RefreshToken = existing.RefreshToken
	}
	if merged.ExpiresAt == "" {
		merged.ExpiresAt = existing.ExpiresAt
	}
	if merged.Scope == "" {
		merged.Scope = existing.Scope
	}
	if merged.CalendarSettings == nil && existing.CalendarSettings != nil {
		cs := *existing.CalendarSettings
		merged.CalendarSettings = &cs
	}

	meta := make(map[string]any, len(existing.Meta)+len(incoming.Meta))
	for k, v := range existing.Meta {
		meta[k] = v
	}
	for k, v := range incoming.Meta {
		meta[k] = v
	}
	if len(meta) > 0 {
		merged.Meta = meta
	}

	if !existing.CreatedAt.IsZero() {
		merged.CreatedAt = existing.CreatedAt
	}
	return merged
}

// RawTokenResponse is the normalized form of a provider token endpoint reply.
// Strava reports an absolute ExpiresAt; Spotify and Google report a relative
// ExpiresIn. Extra keeps the full decoded body for the record's meta map.
type RawTokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`

	Extra map[string]any `json:"-"`
}

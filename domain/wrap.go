package domain

// StravaSummary aggregates the month's activity totals.
type StravaSummary struct {
	TotalActivities int     `json:"total_activities"`
	TotalDistanceKM float64 `json:"total_distance_km"`
	MovingTimeHours float64 `json:"moving_time_hours"`
}

// MusicSummary aggregates the month's listening habits.
type MusicSummary struct {
	TopTrack             string   `json:"top_track,omitempty"`
	TopGenres            []string `json:"top_genres,omitempty"`
	TotalMinutesListened int      `json:"total_minutes_listened"`
}

// WrapSummary is the combined "this month wrapped" payload for one user.
type WrapSummary struct {
	MonthLabel string            `json:"month_label"`
	Summary    string            `json:"ai_summary"`
	Strava     StravaSummary     `json:"strava"`
	Music      MusicSummary      `json:"music"`
	Highlights []EventDescriptor `json:"calendar_highlights"`
}

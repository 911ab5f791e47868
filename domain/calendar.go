package domain

// CalendarSettings is the per-user policy controlling which calendar events are
// surfaced and how much detail is kept. Field names match the JSON the web
// client stores.
type CalendarSettings struct {
	OnlyPersonalCalendars  bool `bson:"only_personal_calendars"  json:"only_personal_calendars"`
	WorkCalendars          bool `bson:"work_calendars"           json:"work_calendars"`
	IncludeAllDayEvents    bool `bson:"include_all_day_events"   json:"include_all_day_events"`
	IncludeRegularMeetings bool `bson:"include_regular_meetings" json:"include_regular_meetings"`
	IncludeLocations       bool `bson:"include_locations"        json:"include_locations"`
}

// DefaultCalendarSettings returns the policy applied before a user has saved
// any preferences: personal events with all-day entries, nothing else.
func DefaultCalendarSettings() CalendarSettings {
	return CalendarSettings{
		OnlyPersonalCalendars:  true,
		WorkCalendars:          false,
		IncludeAllDayEvents:    true,
		IncludeRegularMeetings: false,
		IncludeLocations:       false,
	}
}

// Normalized enforces the invariant that a policy never filters out every
// event class: when both inclusion switches are off, personal events are
// allowed anyway.
func (s CalendarSettings) Normalized() CalendarSettings {
	if !s.OnlyPersonalCalendars && !s.WorkCalendars {
		s.OnlyPersonalCalendars = true
	}
	return s
}

// EventTime is one endpoint of a Google Calendar event: DateTime for timed
// events, Date for all-day events. Exactly one of the two is set.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// CalendarEvent is the subset of a raw Google Calendar item the sanitization
// pipeline consumes.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Location string    `json:"location,omitempty"`
	Status   string    `json:"status,omitempty"`
	Start    EventTime `json:"start"`
	End      EventTime `json:"end"`
}

// EventDescriptor is the privacy-safe rendering of one calendar event. It is
// derived on demand and never persisted.
type EventDescriptor struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Window   string `json:"window"`
	Location string `json:"location,omitempty"`
	Bullet   string `json:"bullet"`
}

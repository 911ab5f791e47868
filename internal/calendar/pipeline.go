// Package calendar turns raw provider calendar events into short,
// privacy-preserving descriptors suitable for rendering in a monthly
// summary. Titles are redacted, locations coarsened and timestamps
// reduced to fuzzy windows before anything leaves the backend.
package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/monthwrap/integrations/domain"
)

// workKeywords classify an event as work-related when any of them
// appears in the lowercased title.
var workKeywords = []string{
	"meeting", "sync", "1:1", "1on1", "standup", "stand-up", "scrum",
	"interview", "review", "planning", "retro", "retrospective",
	"sprint", "demo", "kickoff", "onboarding", "all hands", "all-hands",
	"offsite", "workshop", "townhall", "town hall", "check-in", "checkin",
}

// noisyKeywords mark individual title tokens that carry scheduling
// jargon rather than meaning. Matching tokens are dropped after
// redaction.
var noisyKeywords = []string{
	"zoom", "meet", "teams", "webex", "skype", "hangout",
	"rsvp", "invite", "invitation", "recurring", "tentative",
	"calendar", "agenda", "reminder", "fwd:", "re:",
}

var (
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	urlPattern   = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	phonePattern = regexp.MustCompile(`(\+?1[\s.\-]?)?(\(\d{3}\)|\d{3})[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	digitPattern = regexp.MustCompile(`\d+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

const allDayThreshold = 20 * time.Hour

// fallbackLabel replaces titles that redaction emptied out entirely.
const fallbackLabel = "Calendar event"

// Sanitize runs the full pipeline over events, honoring the given
// preferences, and returns one descriptor per surviving event in the
// order the provider delivered them.
func Sanitize(events []domain.CalendarEvent, settings domain.CalendarSettings) []domain.EventDescriptor {
	policy := settings.Normalized()
	out := make([]domain.EventDescriptor, 0, len(events))
	for _, ev := range events {
		work := isWorkEvent(ev.Summary)
		allDay := isAllDay(ev)
		if !shouldInclude(policy, work, allDay) {
			continue
		}
		label := sanitizeTitle(ev.Summary)
		location := ""
		if policy.IncludeLocations {
			location = coarsenLocation(ev.Location)
		}
		window := windowLabel(ev)
		out = append(out, domain.EventDescriptor{
			ID:       ev.ID,
			Label:    label,
			Window:   window,
			Location: location,
			Bullet:   renderBullet(window, label, location),
		})
	}
	return out
}

func isWorkEvent(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range workKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isAllDay(ev domain.CalendarEvent) bool {
	if ev.Start.Date != "" || ev.End.Date != "" {
		return true
	}
	start, okStart := parseEventTime(ev.Start)
	end, okEnd := parseEventTime(ev.End)
	if okStart && okEnd && end.Sub(start) >= allDayThreshold {
		return true
	}
	return false
}

func shouldInclude(policy domain.CalendarSettings, work, allDay bool) bool {
	if work && !policy.WorkCalendars {
		return false
	}
	if !work && !policy.OnlyPersonalCalendars {
		return false
	}
	if allDay && !policy.IncludeAllDayEvents {
		return false
	}
	if work && !allDay && !policy.IncludeRegularMeetings {
		return false
	}
	return true
}

func sanitizeTitle(title string) string {
	s := emailPattern.ReplaceAllString(title, "")
	s = urlPattern.ReplaceAllString(s, "")
	s = phonePattern.ReplaceAllString(s, "")

	kept := make([]string, 0, 8)
	for _, tok := range strings.Fields(s) {
		if isNoisyToken(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	s = strings.Join(kept, " ")
	s = strings.Trim(s, " \t-–—:;,.'\"")
	s = spacePattern.ReplaceAllString(s, " ")
	if s == "" {
		return fallbackLabel
	}
	return s
}

func isNoisyToken(token string) bool {
	lower := strings.ToLower(token)
	for _, kw := range noisyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// coarsenLocation strips digits, keeps the text before the first comma
// and truncates to three words. Street numbers and suite lines never
// survive; "Blue Bottle Coffee, 123 Main St" becomes "Blue Bottle Coffee".
func coarsenLocation(location string) string {
	if location == "" {
		return ""
	}
	s := digitPattern.ReplaceAllString(location, "")
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}
	words := strings.Fields(s)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

func windowLabel(ev domain.CalendarEvent) string {
	start, okStart := parseEventTime(ev.Start)
	if !okStart {
		return ""
	}
	bucket := "Late"
	switch {
	case start.Day() <= 10:
		bucket = "Early"
	case start.Day() <= 20:
		bucket = "Mid"
	}
	window := fmt.Sprintf("%s %s", bucket, start.Month().String())

	end, okEnd := parseEventTime(ev.End)
	if okEnd && end.Sub(start) > 24*time.Hour {
		return fmt.Sprintf("%s (through %s %d)", window, end.Month().String(), end.Day())
	}
	if ev.Start.DateTime != "" {
		return fmt.Sprintf("%s, %s", window, timeOfDay(start))
	}
	return window
}

func timeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h < 5:
		return "overnight"
	case h < 12:
		return "morning"
	case h < 17:
		return "afternoon"
	case h < 21:
		return "evening"
	default:
		return "night"
	}
}

func parseEventTime(et domain.EventTime) (time.Time, bool) {
	if et.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, et.DateTime); err == nil {
			return t, true
		}
	}
	if et.Date != "" {
		if t, err := time.Parse("2006-01-02", et.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func renderBullet(window, label, location string) string {
	bullet := fmt.Sprintf("%s: '%s'", window, label)
	if location != "" {
		bullet += " in " + location
	}
	return bullet
}

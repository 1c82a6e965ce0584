package calendar

import (
	"context"
	"time"
)

// NoEventsSummary is spoken when the calendar has nothing for today.
const NoEventsSummary = "No events scheduled for today"

// Source produces the spoken morning summary. Implementations own their
// transport and caching; the routine only sees text or an error.
type Source interface {
	// FetchSummary returns spoken-form text describing today's events.
	FetchSummary(ctx context.Context) (string, error)
}

// Event is a single calendar entry in spoken-summary terms.
type Event struct {
	// Start is the event start time. For all-day events it is midnight
	// of the event date.
	Start time.Time
	// Summary is the event title.
	Summary string
	// AllDay marks date-only events.
	AllDay bool
}

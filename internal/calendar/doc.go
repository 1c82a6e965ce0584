// Package calendar turns the user's calendar into the spoken text of the
// morning summary. The only implementation fetches an iCalendar feed
// over HTTP, keeps today's events and phrases them for a speech engine.
package calendar

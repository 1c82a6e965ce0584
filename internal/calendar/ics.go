package calendar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

var errBadHTTPStatus = errors.New("unexpected HTTP status")

// ICS timestamp layouts, tried in order.
const (
	icsLayoutUTC      = "20060102T150405Z"
	icsLayoutFloating = "20060102T150405"
	icsLayoutDate     = "20060102"
)

// ICSSource fetches an iCalendar feed over HTTP and summarizes today's
// events into spoken text.
type ICSSource struct {
	// url is the feed location.
	url string
	// client is the HTTP client, carrying the fetch timeout.
	client *http.Client
	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewICSSource creates a source for the given feed URL.
func NewICSSource(url string, timeout time.Duration) *ICSSource {
	return &ICSSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// FetchSummary implements Source.
func (s *ICSSource) FetchSummary(ctx context.Context) (string, error) {
	events, err := s.fetchEvents(ctx)
	if err != nil {
		return "", err
	}

	return SpokenSummary(eventsForDay(events, s.now())), nil
}

// fetchEvents downloads and parses the feed.
func (s *ICSSource) fetchEvents(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build calendar request: %w", err)
	}

	response, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", s.url, response.Status, errBadHTTPStatus)
	}

	events, err := parseICS(response.Body)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	return events, nil
}

// parseICS reads VEVENT blocks out of an iCalendar stream. Only DTSTART
// and SUMMARY matter for the spoken summary; everything else is skipped.
func parseICS(r io.Reader) ([]Event, error) {
	var (
		events  []Event
		current *Event
	)

	for _, line := range unfoldLines(r) {
		name, params, value := splitProperty(line)

		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VEVENT") {
				current = &Event{}
			}
		case "END":
			if strings.EqualFold(value, "VEVENT") && current != nil {
				if !current.Start.IsZero() {
					events = append(events, *current)
				}

				current = nil
			}
		case "DTSTART":
			if current == nil {
				continue
			}

			start, allDay, err := parseICSTime(value, params)
			if err != nil {
				return nil, fmt.Errorf("event start %q: %w", value, err)
			}

			current.Start = start
			current.AllDay = allDay
		case "SUMMARY":
			if current != nil {
				current.Summary = unescapeText(value)
			}
		}
	}

	return events, nil
}

// unfoldLines applies RFC 5545 line unfolding: a line starting with a
// space or tab continues the previous one.
func unfoldLines(r io.Reader) []string {
	var lines []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if len(lines) > 0 && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) {
			lines[len(lines)-1] += line[1:]

			continue
		}

		lines = append(lines, line)
	}

	return lines
}

// splitProperty breaks "NAME;PARAM=V;PARAM=V:VALUE" into its parts.
func splitProperty(line string) (name string, params map[string]string, value string) {
	head, value, found := strings.Cut(line, ":")
	if !found {
		return strings.ToUpper(strings.TrimSpace(line)), nil, ""
	}

	parts := strings.Split(head, ";")
	name = strings.ToUpper(strings.TrimSpace(parts[0]))

	for _, part := range parts[1:] {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}

		if params == nil {
			params = make(map[string]string)
		}

		params[strings.ToUpper(strings.TrimSpace(key))] = val
	}

	return name, params, value
}

// parseICSTime parses a DTSTART value. Date-only values mark all-day
// events. TZID parameters are honored when the zone is known, otherwise
// the value is read in local time.
func parseICSTime(value string, params map[string]string) (time.Time, bool, error) {
	if params["VALUE"] == "DATE" || len(value) == len(icsLayoutDate) {
		start, err := time.ParseInLocation(icsLayoutDate, value, time.Local)
		if err != nil {
			return time.Time{}, false, err
		}

		return start, true, nil
	}

	if strings.HasSuffix(value, "Z") {
		start, err := time.Parse(icsLayoutUTC, value)
		if err != nil {
			return time.Time{}, false, err
		}

		return start, false, nil
	}

	location := time.Local
	if tzid := params["TZID"]; tzid != "" {
		if loaded, err := time.LoadLocation(tzid); err == nil {
			location = loaded
		}
	}

	start, err := time.ParseInLocation(icsLayoutFloating, value, location)
	if err != nil {
		return time.Time{}, false, err
	}

	return start, false, nil
}

// unescapeText undoes RFC 5545 text escaping.
func unescapeText(s string) string {
	replacer := strings.NewReplacer(
		`\\`, `\`,
		`\,`, `,`,
		`\;`, `;`,
		`\n`, "\n",
		`\N`, "\n",
	)

	return strings.TrimSpace(replacer.Replace(s))
}

// eventsForDay keeps events falling on the same local calendar day as
// now, all-day entries first, the rest in start order.
func eventsForDay(events []Event, now time.Time) []Event {
	wantYear, wantMonth, wantDay := now.In(time.Local).Date()

	var todays []Event

	for _, event := range events {
		year, month, day := event.Start.In(time.Local).Date()
		if year == wantYear && month == wantMonth && day == wantDay {
			todays = append(todays, event)
		}
	}

	sort.SliceStable(todays, func(i, j int) bool {
		if todays[i].AllDay != todays[j].AllDay {
			return todays[i].AllDay
		}

		return todays[i].Start.Before(todays[j].Start)
	})

	return todays
}

// SpokenSummary renders events as text meant for a speech engine.
func SpokenSummary(events []Event) string {
	if len(events) == 0 {
		return NoEventsSummary
	}

	var b strings.Builder

	if len(events) == 1 {
		b.WriteString("You have 1 event today.")
	} else {
		fmt.Fprintf(&b, "You have %d events today.", len(events))
	}

	for _, event := range events {
		title := event.Summary
		if title == "" {
			title = "an untitled event"
		}

		if event.AllDay {
			fmt.Fprintf(&b, " All day: %s.", title)
		} else {
			fmt.Fprintf(&b, " At %s: %s.", event.Start.In(time.Local).Format("15:04"), title)
		}
	}

	return b.String()
}

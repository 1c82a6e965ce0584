package podcast

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var errBadHTTPStatus = errors.New("unexpected HTTP status")

// pubDateLayouts are tried in order when reading item timestamps. Feeds
// in the wild mix RFC 1123 variants freely.
var pubDateLayouts = []string{ //nolint:gochecknoglobals // Package-wide parse table.
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

// rssDocument is the slice of RSS 2.0 the resolver cares about.
type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string `xml:"title"`
	PubDate   string `xml:"pubDate"`
	Enclosure struct {
		URL string `xml:"url,attr"`
	} `xml:"enclosure"`
}

// FeedResolver resolves the newest episode of an RSS feed.
type FeedResolver struct {
	// url is the feed location.
	url string
	// client is the HTTP client, carrying the fetch timeout.
	client *http.Client
}

// NewFeedResolver creates a resolver for the given feed URL.
func NewFeedResolver(url string, timeout time.Duration) *FeedResolver {
	return &FeedResolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// ResolveLatestEpisodeURL implements Resolver. Items carry publication
// dates in assorted formats; the newest parsable one wins, with feed
// order as the fallback when no dates parse.
func (r *FeedResolver) ResolveLatestEpisodeURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build feed request: %w", err)
	}

	response, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", r.url, response.Status, errBadHTTPStatus)
	}

	var doc rssDocument
	if err = xml.NewDecoder(response.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}

	var (
		bestURL   string
		bestTime  time.Time
		haveDated bool
	)

	for _, item := range doc.Channel.Items {
		if item.Enclosure.URL == "" {
			continue
		}

		published, ok := parsePubDate(item.PubDate)
		if !ok {
			if bestURL == "" && !haveDated {
				bestURL = item.Enclosure.URL
			}

			continue
		}

		if !haveDated || published.After(bestTime) {
			bestURL = item.Enclosure.URL
			bestTime = published
			haveDated = true
		}
	}

	if bestURL == "" {
		return "", fmt.Errorf("%s: %w", r.url, ErrNoEpisodes)
	}

	return bestURL, nil
}

func parsePubDate(s string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if published, err := time.Parse(layout, s); err == nil {
			return published, true
		}
	}

	return time.Time{}, false
}

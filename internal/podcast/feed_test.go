package podcast

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveFeed(t *testing.T, body string) *FeedResolver {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	return NewFeedResolver(server.URL, time.Second)
}

func TestFeedResolver_PicksNewestByDate(t *testing.T) {
	t.Parallel()

	resolver := serveFeed(t, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item>
    <title>Older episode</title>
    <pubDate>Mon, 17 Aug 2026 05:00:00 +0000</pubDate>
    <enclosure url="https://cdn.example.com/old.mp3" type="audio/mpeg"/>
  </item>
  <item>
    <title>Newest episode</title>
    <pubDate>Mon, 24 Aug 2026 05:00:00 +0000</pubDate>
    <enclosure url="https://cdn.example.com/new.mp3" type="audio/mpeg"/>
  </item>
</channel></rss>`)

	url, err := resolver.ResolveLatestEpisodeURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/new.mp3", url)
}

func TestFeedResolver_SkipsItemsWithoutEnclosure(t *testing.T) {
	t.Parallel()

	resolver := serveFeed(t, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item>
    <title>Show notes only</title>
    <pubDate>Mon, 24 Aug 2026 05:00:00 +0000</pubDate>
  </item>
  <item>
    <title>Real episode</title>
    <pubDate>Mon, 17 Aug 2026 05:00:00 +0000</pubDate>
    <enclosure url="https://cdn.example.com/real.mp3" type="audio/mpeg"/>
  </item>
</channel></rss>`)

	url, err := resolver.ResolveLatestEpisodeURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/real.mp3", url)
}

func TestFeedResolver_FeedOrderFallback(t *testing.T) {
	t.Parallel()

	resolver := serveFeed(t, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item>
    <title>First</title>
    <pubDate>sometime</pubDate>
    <enclosure url="https://cdn.example.com/first.mp3" type="audio/mpeg"/>
  </item>
  <item>
    <title>Second</title>
    <enclosure url="https://cdn.example.com/second.mp3" type="audio/mpeg"/>
  </item>
</channel></rss>`)

	url, err := resolver.ResolveLatestEpisodeURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/first.mp3", url,
		"feeds without parsable dates fall back to feed order")
}

func TestFeedResolver_NoEpisodes(t *testing.T) {
	t.Parallel()

	resolver := serveFeed(t, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>Notes</title></item>
</channel></rss>`)

	_, err := resolver.ResolveLatestEpisodeURL(context.Background())
	require.ErrorIs(t, err, ErrNoEpisodes)
}

func TestFeedResolver_BadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resolver := NewFeedResolver(server.URL, time.Second)

	_, err := resolver.ResolveLatestEpisodeURL(context.Background())
	require.ErrorIs(t, err, errBadHTTPStatus)
}

func TestFeedResolver_MalformedXML(t *testing.T) {
	t.Parallel()

	resolver := serveFeed(t, "this is not xml")

	_, err := resolver.ResolveLatestEpisodeURL(context.Background())
	require.Error(t, err)
}

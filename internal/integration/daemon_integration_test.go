package integration

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/wakeup-call/internal/api/httpapi"
	"github.com/oshokin/wakeup-call/internal/config"
	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/service/common"
	"github.com/oshokin/wakeup-call/internal/service/daemon"
)

const testEpisodeURL = "https://cdn.example.net/ep1.mp3"

// reservePort grabs a free loopback port and releases it for the daemon.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// serveFixtures publishes an ICS calendar with one event today and an
// RSS feed with one episode.
func serveFixtures(t *testing.T) *httptest.Server {
	t.Helper()

	icsBody := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"DTSTART:" + time.Now().Format("20060102") + "T093000\r\n" +
		"SUMMARY:Standup\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	rssBody := `<rss version="2.0"><channel><title>Morning Show</title>` +
		`<item><title>Episode 1</title>` +
		`<enclosure url="` + testEpisodeURL + `" type="audio/mpeg"/>` +
		`<pubDate>Mon, 24 Aug 2026 05:00:00 +0000</pubDate>` +
		`</item></channel></rss>`

	mux := http.NewServeMux()
	mux.HandleFunc("/calendar.ics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(icsBody))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rssBody))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

// startDaemon runs the full daemon with temporary config and state.
// Speech and playback run the POSIX "true" binary so no real TTS engine
// or media player is needed.
func startDaemon(t *testing.T, addr, statePath string, fixtures *httptest.Server) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cfgPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	cfg := config.Default()
	cfg.ListenAddress = addr
	cfg.StateFile = statePath
	cfg.Speech.Command = "true"
	cfg.Podcast.PlayerCommand = "true"
	cfg.Calendar.ICSURL = fixtures.URL + "/calendar.ics"
	cfg.Podcast.FeedURL = fixtures.URL + "/feed.xml"

	require.NoError(t, config.Save(cfgPath, cfg))

	done := make(chan error, 1)

	go func() {
		done <- daemon.Run(ctx, &daemon.Options{ConfigPath: cfgPath})
	}()

	return func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("daemon did not shut down in time")
		}
	}
}

// waitHealthy polls the daemon until the control API answers.
func waitHealthy(t *testing.T, client *common.Client) {
	t.Helper()

	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		if err := client.Health(ctx); err == nil {
			return
		}

		time.Sleep(20 * time.Millisecond)
	}

	t.Fatal("daemon never became healthy")
}

// TestDaemon_AlarmLifecycle walks the alarm over the real HTTP surface:
// arm, wake, de-duplicated second wake, dismiss, then the morning
// routine through calendar fetch and speech to podcast playback, with
// state persisted on disk.
func TestDaemon_AlarmLifecycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX userland tools")
	}

	addr := reservePort(t)
	statePath := filepath.Join(t.TempDir(), "state.json")

	stop := startDaemon(t, addr, statePath, serveFixtures(t))
	defer stop()

	client, err := common.NewClient(addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = client.Close()
	}()

	waitHealthy(t, client)

	ctx := context.Background()

	status, err := client.EnableAlarm(ctx, "06:30", "chime")
	require.NoError(t, err)
	require.True(t, status.Settings.Enabled)
	require.NotNil(t, status.Pending)

	triggerID := status.Pending.ID

	// An explicit wake signal for the registered trigger rings the alarm.
	accepted, err := client.Wake(ctx, triggerID)
	require.NoError(t, err)
	require.True(t, accepted)

	// The second signal for the same firing folds into the first.
	accepted, err = client.Wake(ctx, triggerID)
	require.NoError(t, err)
	require.False(t, accepted)

	status, err = client.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, wake.RingerRinging, status.Ringer)
	require.False(t, status.Settings.Enabled)

	require.NoError(t, client.Dismiss(ctx))

	// Calendar fetch, speech and the handoff into podcast playback.
	require.Eventually(t, func() bool {
		status, err = client.Status(ctx)

		return err == nil && status.Stage == wake.StagePlayingPodcast
	}, 10*time.Second, 50*time.Millisecond)

	require.Empty(t, status.StageErr)
	require.Equal(t, wake.RingerDismissed, status.Ringer)
	require.Equal(t, "playing", status.Podcast.State)
	require.Equal(t, testEpisodeURL, status.Podcast.EpisodeURL)

	// Dismissing twice is a conflict, not a crash.
	err = client.Dismiss(ctx)
	require.Error(t, err)

	// Scheduling wrote through to disk.
	_, err = os.Stat(statePath)
	require.NoError(t, err)
}

// TestDaemon_EventFeed subscribes to the WebSocket feed and expects the
// alarm-updated event when the alarm is armed.
func TestDaemon_EventFeed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX userland tools")
	}

	addr := reservePort(t)
	statePath := filepath.Join(t.TempDir(), "state.json")

	stop := startDaemon(t, addr, statePath, serveFixtures(t))
	defer stop()

	client, err := common.NewClient(addr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	defer func() {
		_ = client.Close()
	}()

	waitHealthy(t, client)

	conn, _, err := websocket.DefaultDialer.Dial(client.EventsURL(), nil)
	require.NoError(t, err)

	defer func() {
		_ = conn.Close()
	}()

	// Give the hub a beat to register the subscription.
	time.Sleep(200 * time.Millisecond)

	_, err = client.EnableAlarm(context.Background(), "07:15", "pulse")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	for {
		var event httpapi.Event

		require.NoError(t, conn.ReadJSON(&event))

		if event.Kind == httpapi.EventAlarmUpdated {
			return
		}
	}
}

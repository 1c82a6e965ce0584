//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oshokin/wakeup-call/internal/api/httpapi"
	"github.com/oshokin/wakeup-call/internal/config"
	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/version"
)

// Client wraps the daemon's HTTP control API with convenience helpers.
// It is safe for concurrent use.
type Client struct {
	// baseURL is the daemon endpoint, scheme included, no trailing slash.
	baseURL string
	// httpClient performs the requests.
	httpClient *http.Client

	// callTimeout is the default timeout for individual API calls.
	callTimeout time.Duration

	// actor identifies the calling user for the daemon's audit log.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client, mostly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errBadHTTPStatus is returned when the daemon answers with a non-2xx status.
	errBadHTTPStatus = errors.New("bad HTTP status")
)

// NewClient creates a client for the control API at the given address.
// The address may be "host:port" or a full URL.
func NewClient(address string, opts ...Option) (*Client, error) {
	baseURL, err := normalizeBaseURL(address)
	if err != nil {
		return nil, err
	}

	client := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		callTimeout: config.DefaultTimeout,
	}

	// Identification is best effort; the daemon logs a missing actor
	// as "unknown".
	if actor, actorErr := DetectActor(); actorErr == nil {
		client.actor = actor.String()
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	if c == nil || c.httpClient == nil {
		return nil
	}

	c.httpClient.CloseIdleConnections()

	return nil
}

// Status retrieves the daemon's aggregate state.
func (c *Client) Status(ctx context.Context) (*wake.Status, error) {
	var status wake.Status
	if err := c.call(ctx, http.MethodGet, "/alarm", nil, &status); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return &status, nil
}

// EnableAlarm arms the alarm for the next occurrence of timeOfDay
// ("HH:MM" local). An empty sound keeps the current selection.
func (c *Client) EnableAlarm(ctx context.Context, timeOfDay, sound string) (*wake.Status, error) {
	request := httpapi.AlarmRequest{
		Enabled: true,
		Time:    timeOfDay,
		Sound:   sound,
	}

	var status wake.Status
	if err := c.call(ctx, http.MethodPut, "/alarm", request, &status); err != nil {
		return nil, fmt.Errorf("enable alarm: %w", err)
	}

	return &status, nil
}

// DisableAlarm cancels the pending alarm. Disabling an idle alarm is
// not an error.
func (c *Client) DisableAlarm(ctx context.Context) (*wake.Status, error) {
	request := httpapi.AlarmRequest{
		Enabled: false,
	}

	var status wake.Status
	if err := c.call(ctx, http.MethodPut, "/alarm", request, &status); err != nil {
		return nil, fmt.Errorf("disable alarm: %w", err)
	}

	return &status, nil
}

// Dismiss stops the ringing alarm and hands off to the morning routine.
func (c *Client) Dismiss(ctx context.Context) error {
	if err := c.call(ctx, http.MethodPost, "/alarm/dismiss", nil, nil); err != nil {
		return fmt.Errorf("dismiss alarm: %w", err)
	}

	return nil
}

// Wake reports a tap on the delivered alarm. It returns whether the
// daemon accepted the signal as a fresh firing.
func (c *Client) Wake(ctx context.Context, triggerID string) (bool, error) {
	request := httpapi.WakeRequest{
		TriggerID: triggerID,
	}

	var response httpapi.WakeResponse
	if err := c.call(ctx, http.MethodPost, "/alarm/wake", request, &response); err != nil {
		return false, fmt.Errorf("send wake signal: %w", err)
	}

	return response.Accepted, nil
}

// Preview plays one cycle of the given tone on the daemon host.
func (c *Client) Preview(ctx context.Context, sound string) error {
	request := httpapi.PreviewRequest{
		Sound: sound,
	}

	if err := c.call(ctx, http.MethodPost, "/alarm/preview", request, nil); err != nil {
		return fmt.Errorf("preview sound: %w", err)
	}

	return nil
}

// Podcast applies a playback control signal: "play", "pause" or "refresh".
func (c *Client) Podcast(ctx context.Context, control string) error {
	request := httpapi.PodcastRequest{
		Control: control,
	}

	if err := c.call(ctx, http.MethodPost, "/podcast", request, nil); err != nil {
		return fmt.Errorf("control podcast: %w", err)
	}

	return nil
}

// Health reports whether the daemon answers on its control address.
func (c *Client) Health(ctx context.Context) error {
	if err := c.call(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	return nil
}

// EventsURL returns the WebSocket endpoint of the daemon event feed.
func (c *Client) EventsURL() string {
	return strings.Replace(c.baseURL, "http", "ws", 1) + "/events"
}

// call performs one JSON round trip. A nil body sends no payload and a
// nil out discards the response body.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	var reader io.Reader = http.NoBody

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	request.Header.Set("User-Agent", version.UserAgent())

	if c.actor != "" {
		request.Header.Set(httpapi.ActorHeader, c.actor)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}

	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return errorFromResponse(response)
	}

	if out == nil {
		return nil
	}

	if err = json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// errorFromResponse surfaces the daemon's error message when it sent
// one and falls back to the bare status line otherwise.
func errorFromResponse(response *http.Response) error {
	var payload httpapi.ErrorResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s, %s: %w", response.Status, payload.Error, errBadHTTPStatus)
	}

	return fmt.Errorf("%s: %w", response.Status, errBadHTTPStatus)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// normalizeBaseURL turns "host:port" or a full URL into a base URL
// without a trailing slash.
func normalizeBaseURL(address string) (string, error) {
	if address == "" {
		return "", errAddressRequired
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse server address: %w", err)
	}

	return strings.TrimRight(parsed.String(), "/"), nil
}

// Package httpapi is the daemon's control plane: a small JSON API for
// alarm settings, dismissal, wake signals, tone previews and podcast
// control, plus a WebSocket feed streaming state changes to watchers.
// Scheduling errors pass through to the caller untouched; the API never
// retries on the user's behalf.
package httpapi

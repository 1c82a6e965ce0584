// Package state implements persistence for the alarm state.
//
// The FileRepository stores and loads the state as JSON on disk and exposes a
// Repository interface that the scheduler and dispatcher depend on.
package state

// Package scheduler turns a wall-clock wake time into a registered
// trigger. It owns the day-rollover rule (a time not strictly in the
// future means tomorrow), guarantees at most one live registration and
// persists every change for restart reconciliation.
package scheduler

// Package notify abstracts wall-clock wake-up scheduling behind the
// Facility interface: register a fire time, keep the returned handle,
// cancel idempotently, and receive firings through a callback.
//
// TimerFacility is the in-process implementation. Registrations live in
// memory only; the daemon persists enough state to re-register after a
// restart, which is handled by the wake dispatcher's reconciliation.
package notify

// Package daemon wires the wakeup components together and runs them
// behind the HTTP control API: scheduler, dispatcher, ringer, morning
// routine, podcast playback, audio pre-warm and the event feed.
package daemon

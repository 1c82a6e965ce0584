// Package prewarm keeps the audio stack ready for the next alarm.
//
// The Task looks at the pending wake-up registrations: within a minute of
// a trigger it primes the background audio route, and within the last ten
// seconds it force re-enables the output. The Runner invokes the task
// periodically, backing off while it keeps failing.
package prewarm

// Package ringer owns the audible part of the alarm: it loops the wake
// tone over the exclusive audio session until the user dismisses, then
// hands control to the morning routine. It also serves tone previews
// when the alarm is quiet.
package ringer

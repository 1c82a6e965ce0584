// Package audio owns the single shared audio output.
//
// The Manager hands the output to exactly one owner at a time (ringer,
// speech, podcast or the pre-warm probe). Taking the session from a live
// holder performs a full teardown, waits a settle delay and only then
// configures the new route; skipping that pause is what makes the first
// seconds of playback silently disappear on real devices.
//
// Tone renders the built-in alarm sounds as raw PCM so the ringer has no
// asset files to load at five in the morning.
package audio

// Package routine implements the morning routine that follows a
// dismissed alarm: fetch the calendar summary, read it aloud, then hand
// the speakers to the podcast. The routine is a small forward-only state
// machine with an error overlay; it recovers from collaborator failures
// by advancing where that is safe and aborting where it is not.
package routine

// Package speech reads the morning summary aloud. The engine contract is
// callback-driven so the routine can advance on completion, cancellation
// and failure alike; the stock implementation shells out to a system
// text-to-speech command.
package speech

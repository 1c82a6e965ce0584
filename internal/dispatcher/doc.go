// Package dispatcher collapses the three ways a wake-up can reach the
// daemon (timer delivery, user tap, resume reconciliation) into exactly
// one alarm per firing, keyed by trigger identity within a tunable
// de-duplication window. It also owns reconciliation: re-registering or
// immediately ringing triggers the process was not around to see.
package dispatcher

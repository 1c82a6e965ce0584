// Package config defines daemon settings used by the wakeup binaries and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the control API address, the state file path, the
// log level and the tuning knobs for the calendar, speech, podcast,
// pre-warm, audio and dispatch subsystems. Validate fills defaults for
// everything left unset.
package config

// Package common holds helpers shared by the command-line tools.
//
// It provides a lightweight HTTP client for the daemon's control API
// with per-call timeouts and utilities to detect the current system
// actor (hostname/username) for audit purposes.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

// Package podcast plays the newest episode of the user's feed as the
// final, open-ended stage of the morning routine. It resolves the
// episode URL from RSS, drives an external player process and exposes
// the play/pause/refresh control the routine and the user share.
package podcast

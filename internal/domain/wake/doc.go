// Package wake holds the domain model shared by the wakeup services:
// alarm settings, the scheduled trigger, wake-signal sources, the morning
// routine stages and the aggregate status served by the control API.
//
// The types here are plain data with Clone helpers so services never leak
// internal references to callers.
package wake

// Package castapi is a client for the cast HTTP service that fronts the
// Google speaker-class devices.
//
// The service exposes a device listing plus per-device and assistant
// commands:
//
//	GET  device/                  status of every device
//	GET  device/{id}/stop         stop playback
//	POST device/{id}/playMedia    play or speak a title
//	GET  device/{id}/volume/{n}   set volume
//	GET  device/{id}/{action}     play, pause, next_track, ...
//	POST assistant/command        free-text assistant command
//
// Failures are returned as *FetchError or *CommandError; both match
// ErrRequestFailed with errors.Is.
package castapi

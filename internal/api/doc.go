// Package api implements the HTTP status API of the cast bridge.
//
// This package provides:
//   - Bridge health and runtime metrics
//   - Read access to the last published state of every speaker
//   - A refresh trigger equivalent to the MQTT refresh command
//   - The command audit trail, when the database is enabled
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// The API is read-mostly and unauthenticated; bind it to a trusted
// interface. It is disabled unless api.enabled is set.
package api

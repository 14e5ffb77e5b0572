// Package server implements the servermon HTTP API surface.
//
// Owns:
//   - HTTP routing, handlers, and request/response contracts
//   - Request id, access log and panic recovery middleware
//   - Mapping monitor error kinds to status codes
//
// Does not own:
//   - Reconciliation and dedup (monitor.Service)
//   - Storage internals (internal/store/...)
//
// Invariants:
//   - JSON responses are consistent via writeJSON
//   - Internal failures never leak their cause into a response body
//   - Every route is served both at root and under the legacy prefix
package server

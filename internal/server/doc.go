// Package server implements the core of the hubcast broadcast service: the
// connection registry, the wire-message codec, the fan-out broadcast engine,
// and per-connection WebSocket session handling.
//
// The implementation is organized into specialized files for configuration,
// registry, broadcasting, clients, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server

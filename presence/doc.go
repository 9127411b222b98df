// Package presence contains the core types of the presence and location
// confidence engine: GPS coordinates and great-circle distance, the
// confidence score model combining GPS, Wi-Fi and motion signals, the
// append-only entry and scan event types, the domain rejection types, and
// the shared observability interfaces.
//
// Everything in this package is pure and free of I/O. The stateful
// components live in the subpackages:
//
//   - config: TTL-cached typed key/value configuration access
//   - entry: the entry/exit decision policy
//   - location: mode-aware RFID tag resolution
//   - postgresengine: the persistent collaborator over Postgres
//   - oteladapters: OpenTelemetry implementations of the observability interfaces
package presence

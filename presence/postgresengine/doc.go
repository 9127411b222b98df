// Package postgresengine implements the persistent collaborator of the
// presence engine on Postgres: the typed configuration table, the
// append-only entry-event and location-history tables, and the active-tag,
// reader and shelf lookups.
//
// All SQL is built with goqu and executed through a small adapter interface,
// so the store works the same over pgxpool.Pool, database/sql (lib/pq) and
// sqlx.DB connections. Timeouts and cancellation are the responsibility of
// the injected connection; the store only threads the context through.
package postgresengine

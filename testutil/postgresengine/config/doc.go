// Package config provides database connection configurations for integration
// tests and benchmarks of the Postgres-backed presence store, one constructor
// per supported client library.
package config

// Package store caches generated exercises in SQLite, keyed by the spec
// fingerprint and the seed, so a request can be replayed without
// regenerating it. Results are stored as JSON; the schema is created on Open.
package store

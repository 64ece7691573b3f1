// Package storage implements the client's durable local key-value store on
// SQLite.
//
// It stands in for per-browser storage: credentials, the serialized user
// profile, edit-permission decisions, ticket-paid flags and the pending
// checkout event id all live in the kv table. Every client process pointed
// at the same database file sees the same values; last write wins.
//
// The kv_changes table is an append-only log of changed key sets. Session
// stores publish to it after they persist something, and watchers in other
// processes poll it to learn that they must reload.
//
// Schema is managed by goose migrations embedded in the migrations package;
// see InitDatabase and RunMigrations.
package storage

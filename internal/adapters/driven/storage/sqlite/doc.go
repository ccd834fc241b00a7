// Package sqlite provides SQLite-backed implementations of driven port interfaces.
//
// A single Store owns the database file and hands out the scheduler store and
// the flow journal. Migrations are embedded and applied on open.
package sqlite

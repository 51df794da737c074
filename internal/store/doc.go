// Package store persists operator edits in SQLite so they survive between
// bidsprep invocations.
//
// Rows are keyed by file path, never by node ID: node IDs only live as long as
// one session. Marker bindings are stored as ordered marker paths and mapped
// back to node IDs when a folder is loaded again. Schema changes ship as
// embedded migrations applied in one transaction on Open.
package store

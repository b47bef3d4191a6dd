// Package library indexes the on-disk photo collection the collaborator
// serves from: a SQLite catalog of albums and probed image dimensions, a
// directory scanner that rebuilds it, and a filesystem watcher that keeps it
// fresh.
package library

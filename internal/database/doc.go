// Package database provides SQLite storage for the photo gallery.
//
// It holds:
//   - Albums with their ordered images
//   - Recorded album views, one row per view with the viewer's session id
//   - A key/value metadata table, also used for the variant cache snapshot
//
// The database uses WAL mode for concurrent reads and creates its schema on
// open. An empty album table is filled from the seed catalogue by [Database.Seed].
package database

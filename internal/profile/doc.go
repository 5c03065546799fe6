// Package profile defines the tracked-item data model and its SQLite
// persistence layer.
//
// A Profile groups tracked items, cached search results, takedown
// entries, and display preferences under one named workspace. The
// Store persists whole profiles as JSON documents inside a SQLite
// database, keeps exactly one profile active at a time, and guards the
// database with a file lock so only one process mutates it.
//
// Takedown entries are normalized on load: duplicates that share a
// listing identifier collapse into one entry, preferring whichever
// copy carries filing or takedown dates.
package profile

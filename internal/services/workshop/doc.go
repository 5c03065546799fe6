// Package workshop implements the marketplace search API client.
//
// The client covers four endpoints: per-identifier search, listing
// existence checks, seller catalog pages, and listing detail fetches.
// All requests run through the shared request scheduler, which paces
// them and tags throttled responses so callers can stop batch work
// when the remote service pushes back.
package workshop

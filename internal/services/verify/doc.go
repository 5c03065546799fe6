// Package verify drives content verification jobs through a local
// helper tool's HTTP control surface.
//
// The tool downloads suspect listings, reads their manifests, and
// compares file hashes against the owner's original content. The
// client here starts jobs, polls their progress, and merges the final
// per-listing results back onto the profile's takedown entries.
package verify

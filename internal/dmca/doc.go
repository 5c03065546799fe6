// Package dmca manages the takedown lifecycle for infringing listings.
//
// Each tracked listing moves through three states: pending, filed, and
// taken down. Pending and filed both toggle by hand; taken down is
// only set by rechecking filed listings against the marketplace, which
// makes the state durable evidence rather than an honor-system flag.
// Rechecks run through the paced scheduler and stop early when the
// marketplace starts throttling, keeping whatever progress was made.
package dmca

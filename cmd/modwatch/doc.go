// Package main hosts the modwatch CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into
// profile store operations, paced marketplace searches, takedown list
// maintenance, and verification job runs. It centralizes configuration
// resolution and logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main

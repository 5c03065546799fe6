// Package services defines shared utilities consumed by the external
// service clients.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures
//     for consistent classification at the CLI surface.
//
// Use these helpers when wiring new client logic so error handling
// stays uniform across integrations.
package services

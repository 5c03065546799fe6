// Package logging assembles the structured slog loggers used across modwatch.
//
// It owns level parsing, console/JSON handler selection, and output fan-out to
// stdout plus the on-disk log file. It also exposes attribute helpers and a
// no-op logger so wiring code and tests never hand-roll slog setup.
package logging

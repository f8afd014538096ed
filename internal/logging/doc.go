// Package logging builds the process-wide slog logger. Console output is
// mirrored verbatim to the run log file under the metadata root so every
// console line survives for post-mortem inspection.
package logging

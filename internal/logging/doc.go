// Package logging builds the slog loggers used across cardscan and
// provides the attribute helpers and context plumbing shared by the
// daemon, workers, and CLI.
package logging

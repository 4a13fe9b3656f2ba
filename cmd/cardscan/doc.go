// Package main hosts the cardscan CLI entrypoint and command graph.
//
// The Cobra-based command tree covers scan submission, job inspection,
// queue maintenance, inventory listing, and configuration scaffolding.
// It centralizes configuration resolution and store access so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the
// internal packages first, then surface it through dedicated commands
// or flags here.
package main

// Package config loads and validates the TOML configuration for the
// cardscan daemon and CLI. Every empirically tuned threshold in the
// recognition pipeline is a named field here so operators can adjust
// calibration without rebuilding.
package config

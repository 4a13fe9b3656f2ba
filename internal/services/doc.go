// Package services defines the error taxonomy shared by the scan
// pipeline and its external capability adapters.
package services

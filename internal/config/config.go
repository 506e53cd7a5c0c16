package config

import "time"

// Options holds all configuration for a webprobe run.
type Options struct {
	// Target
	URL string

	// Network
	Timeout      time.Duration // per dial, handshake, read and write
	MaxRedirects int

	// Output
	OutputFile   string
	OutputFormat string // "text", "json", "csv"
	Quiet        bool
	NoColor      bool
	Verbose      bool

	// Hooks
	OnResultCmd string
}

package scanner

import (
	"time"
)

// Options tunes a Scanner.
type Options struct {
	Fingerprint FingerprintMode
	// Workers bounds concurrent fingerprinting. Zero means 4.
	Workers int
}

// ScanReport summarizes one scan.
type ScanReport struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Warnings    []ScanWarning
	Files       int
	Entries     int
}

// Duration returns how long the scan took.
func (r *ScanReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// ScanWarning records a file that was skipped because it could not be read.
type ScanWarning struct {
	Err  error
	Path string
}

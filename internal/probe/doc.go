// Package probe extracts technical metadata from media files via the
// ffprobe subprocess and computes content fingerprints. Probe failures are
// per-file and recoverable; the scanner converts them into structured scan
// errors and continues.
package probe

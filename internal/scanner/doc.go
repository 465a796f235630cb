// Package scanner crawls the configured library roots, probes candidate
// media files, scores them, and upserts catalog rows under a recorded scan
// run. Scans are resumable: an interrupted run leaves already-upserted rows
// in place and the next full scan converges on the same final state.
package scanner

// Package parse extracts title, year, season/episode, release group, and
// media kind from a media file's basename. The parser is deterministic and
// total: every input yields a result, falling back to media kind "unknown"
// when no signal is present.
package parse
